package transport

import "time"

// ListClientsRequest contains paging and search options.
type ListClientsRequest struct {
	Search   string `form:"search" validate:"omitempty,max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// SetAdminRequest toggles the admin flag.
type SetAdminRequest struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

// ClientResponse represents a client in API responses.
type ClientResponse struct {
	ID                int64     `json:"id"`
	PhoneNumber       string    `json:"phoneNumber"`
	FullName          *string   `json:"fullName,omitempty"`
	ConversationState *string   `json:"conversationState,omitempty"`
	IsAdmin           bool      `json:"isAdmin"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ClientListResponse wraps a page of clients.
type ClientListResponse struct {
	Items    []ClientResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}
