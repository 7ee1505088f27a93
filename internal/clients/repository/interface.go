package repository

import (
	"context"
	"time"

	"fixmate_backend/internal/domain"
)

// ListParams pages through clients.
type ListParams struct {
	Search string
	Offset int
	Limit  int
}

// ClientReader provides read operations for clients.
type ClientReader interface {
	GetByID(ctx context.Context, id int64) (domain.Client, error)
	GetByPhone(ctx context.Context, phone string) (domain.Client, error)
	List(ctx context.Context, params ListParams) ([]domain.Client, int, error)
}

// ConversationStore persists the per-client conversation row. All methods
// join the transaction carried by ctx.
type ConversationStore interface {
	// GetOrCreateForUpdate returns the client for phone, creating it when
	// missing, and locks the row until the transaction ends.
	GetOrCreateForUpdate(ctx context.Context, phone string) (domain.Client, error)
	// LockByID locks an existing client row.
	LockByID(ctx context.Context, id int64) (domain.Client, error)
	// SaveConversation writes state and payload in one statement. A nil
	// state clears both.
	SaveConversation(ctx context.Context, clientID int64, state *string, payload []byte) error
	SetFullName(ctx context.Context, clientID int64, name string) error
	// ClearStaleConversations resets every conversation untouched since before.
	ClearStaleConversations(ctx context.Context, before time.Time) (int64, error)
}

// ClientWriter provides administrative mutations.
type ClientWriter interface {
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	Delete(ctx context.Context, id int64) error
}

// Repository combines all client repository operations.
type Repository interface {
	ClientReader
	ClientWriter
	ConversationStore
}
