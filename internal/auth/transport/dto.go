package transport

import "time"

// LoginLinkRequest asks for a login link to be sent over WhatsApp.
type LoginLinkRequest struct {
	Phone string `json:"phone" validate:"required,za_phone"`
}

// ExchangeRequest trades a login link token for an access token.
type ExchangeRequest struct {
	Token string `json:"token" validate:"required,max=2048"`
}

// AuthResponse carries an access token.
type AuthResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Kind        string    `json:"kind"`
	SubjectID   int64     `json:"subjectId"`
	Roles       []string  `json:"roles"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	SubjectID int64    `json:"subjectId"`
	Kind      string   `json:"kind"`
	Roles     []string `json:"roles"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
