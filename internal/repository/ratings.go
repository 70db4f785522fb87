package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

// ReviewsRepository provides helpers for movie reviews.
type ReviewsRepository struct {
	db DBTX
}

const reviewColumns = `id, movie_id, user_id, rating, comment, created_at`

// ReviewCreateParams captures the payload required to insert a review.
type ReviewCreateParams struct {
	MovieID int64
	UserID  int64
	Rating  int
	Comment string
}

// Create inserts a review. A second review for the same (user, movie)
// yields ErrUniqueViolation; unknown user or movie yields ErrForeignKeyViolation.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	const query = `
        INSERT INTO reviews (movie_id, user_id, rating, comment)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + reviewColumns

	review, err := scanReview(r.db.QueryRow(ctx, query, params.MovieID, params.UserID, params.Rating, params.Comment))
	if err != nil {
		return domain.Review{}, translateError(err)
	}
	return review, nil
}

// Exists reports whether userID already reviewed movieID.
func (r *ReviewsRepository) Exists(ctx context.Context, userID, movieID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND movie_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, movieID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByMovie returns a movie's reviews in insertion order.
func (r *ReviewsRepository) ListByMovie(ctx context.Context, movieID int64, page Page) ([]domain.Review, error) {
	offset, limit := page.window()
	const query = `
        SELECT ` + reviewColumns + `
        FROM reviews
        WHERE movie_id = $1
        ORDER BY id ASC
        OFFSET $2 LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, movieID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.MovieID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	return review, err
}
