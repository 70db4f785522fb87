package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

// UsersRepository persists credentials. It stores only the digest and salt.
type UsersRepository struct {
	db DBTX
}

const userColumns = `id, name, password, salt, created_at`

// UserCreateParams bundles the fields required to register a user.
type UserCreateParams struct {
	Name         string
	PasswordHash string
	Salt         string
}

// Create inserts a user. A taken name yields ErrUniqueViolation.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	const query = `
        INSERT INTO users (name, password, salt)
        VALUES ($1, $2, $3)
        RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, params.Name, params.PasswordHash, params.Salt))
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return user, nil
}

// GetByName fetches a user by its unique name.
func (r *UsersRepository) GetByName(ctx context.Context, name string) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name))
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return user, nil
}

// List returns users in registration order.
func (r *UsersRepository) List(ctx context.Context, page Page) ([]domain.User, error) {
	offset, limit := page.window()
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &user.Salt, &user.CreatedAt)
	return user, err
}
