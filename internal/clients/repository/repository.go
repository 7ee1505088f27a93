package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clientNotFoundMessage = "client not found"

const clientColumns = `id, phone_number, full_name, conversation_state, conversation_payload,
	conversation_updated_at, is_admin, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(
		&c.ID, &c.PhoneNumber, &c.FullName, &c.ConversationState, &c.ConversationPayload,
		&c.ConversationUpdatedAt, &c.IsAdmin, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *Repo) getOne(ctx context.Context, op, query string, args ...any) (domain.Client, error) {
	c, err := scanClient(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, apperr.NotFound(clientNotFoundMessage)
		}
		return domain.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetByID retrieves a client by ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Client, error) {
	return r.getOne(ctx, "get client by id",
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
}

// GetByPhone retrieves a client by E.164 phone number.
func (r *Repo) GetByPhone(ctx context.Context, phone string) (domain.Client, error) {
	return r.getOne(ctx, "get client by phone",
		`SELECT `+clientColumns+` FROM clients WHERE phone_number = $1`, phone)
}

// List retrieves clients ordered by newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Client, int, error) {
	var search any
	if params.Search != "" {
		search = "%" + params.Search + "%"
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM clients
		WHERE ($1::text IS NULL OR phone_number ILIKE $1 OR full_name ILIKE $1)`, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE ($1::text IS NULL OR phone_number ILIKE $1 OR full_name ILIKE $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, search, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate clients: %w", err)
	}
	return items, total, nil
}

// GetOrCreateForUpdate inserts the client if needed and locks the row.
func (r *Repo) GetOrCreateForUpdate(ctx context.Context, phone string) (domain.Client, error) {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx,
		`INSERT INTO clients (phone_number) VALUES ($1) ON CONFLICT (phone_number) DO NOTHING`, phone); err != nil {
		return domain.Client{}, fmt.Errorf("ensure client: %w", err)
	}
	return r.getOne(ctx, "lock client",
		`SELECT `+clientColumns+` FROM clients WHERE phone_number = $1 FOR UPDATE`, phone)
}

// LockByID locks an existing client row.
func (r *Repo) LockByID(ctx context.Context, id int64) (domain.Client, error) {
	return r.getOne(ctx, "lock client by id",
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id)
}

// SaveConversation writes state and payload atomically.
func (r *Repo) SaveConversation(ctx context.Context, clientID int64, state *string, payload []byte) error {
	if state == nil {
		payload = nil
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE clients
		SET conversation_state = $2,
		    conversation_payload = $3,
		    conversation_updated_at = now(),
		    updated_at = now()
		WHERE id = $1`, clientID, state, payload)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMessage)
	}
	return nil
}

// SetFullName stores the registered name.
func (r *Repo) SetFullName(ctx context.Context, clientID int64, name string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE clients SET full_name = $2, updated_at = now() WHERE id = $1`, clientID, name)
	if err != nil {
		return fmt.Errorf("set client name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMessage)
	}
	return nil
}

// ClearStaleConversations resets abandoned conversations in bulk. Rows
// locked by an in-flight message are skipped and picked up next sweep.
func (r *Repo) ClearStaleConversations(ctx context.Context, before time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE clients
		SET conversation_state = NULL,
		    conversation_payload = NULL,
		    conversation_updated_at = now(),
		    updated_at = now()
		WHERE id IN (
			SELECT id FROM clients
			WHERE conversation_state IS NOT NULL AND conversation_updated_at < $1
			FOR UPDATE SKIP LOCKED
		)`, before)
	if err != nil {
		return 0, fmt.Errorf("clear stale conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetAdmin toggles the administrative flag.
func (r *Repo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE clients SET is_admin = $2, updated_at = now() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("set client admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMessage)
	}
	return nil
}

// Delete removes a client and, through the foreign key, their jobs.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMessage)
	}
	return nil
}
