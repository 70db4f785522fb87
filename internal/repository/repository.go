package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/kinoapp/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrUniqueViolation indicates a unique index rejected the write.
	ErrUniqueViolation = errors.New("repository: unique violation")
	// ErrForeignKeyViolation indicates a referenced row does not exist.
	ErrForeignKeyViolation = errors.New("repository: foreign key violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	db      DBTX
	Users   *UsersRepository
	Movies  *MoviesRepository
	Reviews *ReviewsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return newWithDB(pool)
}

func newWithDB(db DBTX) *Repository {
	return &Repository{
		db:      db,
		Users:   &UsersRepository{db: db},
		Movies:  &MoviesRepository{db: db},
		Reviews: &ReviewsRepository{db: db},
	}
}

// InTx runs fn against repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise; the
// connection goes back to the pool on every path.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(newWithDB(tx))
	})
}

// translateError maps driver errors onto the repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Err: ErrUniqueViolation, Constraint: pgErr.ConstraintName}
		case pgForeignKeyViolation:
			return &ConstraintError{Err: ErrForeignKeyViolation, Constraint: pgErr.ConstraintName}
		}
	}
	return err
}

// ConstraintError reports which constraint rejected a write.
type ConstraintError struct {
	Err        error
	Constraint string
}

func (e *ConstraintError) Error() string {
	return e.Err.Error() + " (" + e.Constraint + ")"
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Page is an optional offset/limit window.
type Page struct {
	Offset *int
	Limit  *int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// window resolves a Page into concrete OFFSET/LIMIT values.
func (p Page) window() (offset, limit int) {
	limit = DefaultLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	if limit < 0 {
		limit = 0
	} else if limit > MaxLimit {
		limit = MaxLimit
	}
	if p.Offset != nil && *p.Offset > 0 {
		offset = *p.Offset
	}
	return offset, limit
}
