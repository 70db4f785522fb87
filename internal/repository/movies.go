package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	db DBTX
}

const movieColumns = `
    id,
    title,
    release_date,
    ratings_sum,
    ratings_count,
    ratings_avg,
    comments_count,
    created_at
`

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title       string
	ReleaseDate time.Time
}

// MovieListFilters encapsulates search and pagination options.
type MovieListFilters struct {
	Substr *string
	Year   *int
	// Top orders by average rating and bounds the result to Top rows.
	Top *int
	Page
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (title, release_date)
        VALUES ($1, $2)
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.db.QueryRow(ctx, query, params.Title, params.ReleaseDate))
	if err != nil {
		return domain.Movie{}, translateError(err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, translateError(err)
	}
	return movie, nil
}

// GetForUpdate fetches a movie and locks its row until the surrounding
// transaction ends. It must be called on a repository obtained from InTx.
func (r *MoviesRepository) GetForUpdate(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 FOR UPDATE`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, translateError(err)
	}
	return movie, nil
}

// GetByTitle fetches a movie by its unique title.
func (r *MoviesRepository) GetByTitle(ctx context.Context, title string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE title = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, title))
	if err != nil {
		return domain.Movie{}, translateError(err)
	}
	return movie, nil
}

// UpdateAggregates writes the derived rating statistics of movie.
func (r *MoviesRepository) UpdateAggregates(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET ratings_sum = $2,
            ratings_count = $3,
            ratings_avg = $4,
            comments_count = $5
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	updated, err := scanMovie(r.db.QueryRow(ctx, query,
		movie.ID, movie.RatingsSum, movie.RatingsCount, movie.RatingsAvg, movie.CommentsCount))
	if err != nil {
		return domain.Movie{}, translateError(err)
	}
	return updated, nil
}

// List returns movies that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) ([]domain.Movie, error) {
	offset, limit := filters.window()
	if filters.Top != nil {
		top := *filters.Top
		if top < 0 {
			top = 0
		}
		if filters.Limit == nil || top < limit {
			limit = top
		}
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Substr != nil && *filters.Substr != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg("%"+escapeLike(*filters.Substr)+"%")))
	}
	if filters.Year != nil {
		start := time.Date(*filters.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		where = append(where, fmt.Sprintf("release_date >= %s AND release_date < %s", arg(start), arg(end)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	if filters.Top != nil {
		queryBuilder.WriteString(" ORDER BY ratings_avg DESC, id ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY id ASC")
	}
	queryBuilder.WriteString(fmt.Sprintf(" OFFSET %d LIMIT %d", offset, limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.ReleaseDate,
		&movie.RatingsSum,
		&movie.RatingsCount,
		&movie.RatingsAvg,
		&movie.CommentsCount,
		&movie.CreatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
