package repository

import (
	"context"
	"errors"
	"fmt"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/geo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	fixerNotFoundMessage = "fixer not found"
	uniqueViolation      = "23505"
)

const fixerColumns = `id, full_name, phone_number, skills, is_active, vetting_status, latitude, longitude,
	last_assigned_at, balance_cents, bank_name, bank_account_number, bank_branch_code, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new fixers repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanFixer(row pgx.Row) (domain.Fixer, error) {
	var f domain.Fixer
	var vetting string
	err := row.Scan(
		&f.ID, &f.FullName, &f.PhoneNumber, &f.Skills, &f.IsActive, &vetting, &f.Latitude, &f.Longitude,
		&f.LastAssignedAt, &f.BalanceCents, &f.BankName, &f.BankAccountNumber, &f.BankBranchCode,
		&f.CreatedAt, &f.UpdatedAt,
	)
	f.VettingStatus = domain.VettingStatus(vetting)
	return f, err
}

func (r *Repo) getOne(ctx context.Context, op, query string, args ...any) (domain.Fixer, error) {
	f, err := scanFixer(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Fixer{}, apperr.NotFound(fixerNotFoundMessage)
		}
		return domain.Fixer{}, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

// GetByID retrieves a fixer by ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Fixer, error) {
	return r.getOne(ctx, "get fixer by id", `SELECT `+fixerColumns+` FROM fixers WHERE id = $1`, id)
}

// GetByPhone retrieves a fixer by E.164 phone number.
func (r *Repo) GetByPhone(ctx context.Context, phone string) (domain.Fixer, error) {
	return r.getOne(ctx, "get fixer by phone", `SELECT `+fixerColumns+` FROM fixers WHERE phone_number = $1`, phone)
}

// List retrieves fixers ordered by id.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Fixer, int, error) {
	var vetting any
	if params.VettingStatus != nil {
		vetting = string(*params.VettingStatus)
	}

	const filter = `WHERE ($1::boolean IS NULL OR is_active = $1) AND ($2::text IS NULL OR vetting_status = $2)`

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM fixers `+filter, params.IsActive, vetting).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count fixers: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+fixerColumns+` FROM fixers `+filter+` ORDER BY id LIMIT $3 OFFSET $4`,
		params.IsActive, vetting, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list fixers: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Fixer, 0)
	for rows.Next() {
		f, err := scanFixer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan fixer: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate fixers: %w", err)
	}
	return items, total, nil
}

// Create inserts a new fixer.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Fixer, error) {
	var lat, lon *float64
	if params.Location != nil {
		lat, lon = &params.Location.Lat, &params.Location.Lon
	}

	f, err := scanFixer(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO fixers (full_name, phone_number, skills, vetting_status, latitude, longitude,
			bank_name, bank_account_number, bank_branch_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+fixerColumns,
		params.FullName, params.PhoneNumber, params.Skills, string(params.VettingStatus), lat, lon,
		params.BankName, params.BankAccountNumber, params.BankBranchCode,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Fixer{}, apperr.Conflict("a fixer with this phone number already exists")
		}
		return domain.Fixer{}, fmt.Errorf("create fixer: %w", err)
	}
	return f, nil
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(fixerNotFoundMessage)
	}
	return nil
}

// SetActive toggles whether the fixer takes work.
func (r *Repo) SetActive(ctx context.Context, id int64, isActive bool) error {
	return r.exec(ctx, "set fixer active",
		`UPDATE fixers SET is_active = $2, updated_at = now() WHERE id = $1`, id, isActive)
}

// SetVettingStatus records the admin vetting decision.
func (r *Repo) SetVettingStatus(ctx context.Context, id int64, status domain.VettingStatus) error {
	return r.exec(ctx, "set fixer vetting status",
		`UPDATE fixers SET vetting_status = $2, updated_at = now() WHERE id = $1`, id, string(status))
}

// UpdateLocation stores the fixer's reported position.
func (r *Repo) UpdateLocation(ctx context.Context, id int64, point geo.Point) error {
	return r.exec(ctx, "update fixer location",
		`UPDATE fixers SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`, id, point.Lat, point.Lon)
}

// DeductBalance subtracts the platform fee. Balances may go negative; the
// fixer settles the difference out of band.
func (r *Repo) DeductBalance(ctx context.Context, id int64, cents int64) (int64, error) {
	var balance int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE fixers SET balance_cents = balance_cents - $2, updated_at = now()
		WHERE id = $1
		RETURNING balance_cents`, id, cents).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(fixerNotFoundMessage)
		}
		return 0, fmt.Errorf("deduct fixer balance: %w", err)
	}
	return balance, nil
}
