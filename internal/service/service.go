// Package service implements the movie-review operations on top of the
// repository: registration, authentication, the movie catalog and the
// review aggregate.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/kinoapp/internal/auth"
	"github.com/Clark-Hu/kinoapp/internal/domain"
	"github.com/Clark-Hu/kinoapp/internal/metadata"
	"github.com/Clark-Hu/kinoapp/internal/metrics"
	"github.com/Clark-Hu/kinoapp/internal/repository"
)

// Service is safe for concurrent use; all state lives in the database.
type Service struct {
	repo          *repository.Repository
	hasher        *auth.Hasher
	authenticator *auth.Authenticator
	metadata      metadata.Client
	logger        zerolog.Logger
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetadata sets the client used to fill in missing release dates.
func WithMetadata(c metadata.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.metadata = c
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service over repo.
func New(repo *repository.Repository, hasher *auth.Hasher, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		hasher:        hasher,
		authenticator: auth.NewAuthenticator(repo.Users, hasher),
		metadata:      metadata.NopClient{},
		logger:        logger.With().Str("component", "service").Logger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser stores a new user with a fresh salt.
func (s *Service) RegisterUser(ctx context.Context, name, password string) (domain.User, error) {
	if err := checkName("name", name, domain.MaxUserNameLength); err != nil {
		return domain.User{}, err
	}
	if password == "" {
		return domain.User{}, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return domain.User{}, fmt.Errorf("generate salt: %w", err)
	}
	digest := s.hasher.Hash(password, salt)

	var user domain.User
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Users.GetByName(ctx, name); err == nil {
			metrics.ConflictsTotal.WithLabelValues("user", "check").Inc()
			return domain.ErrResourceAlreadyExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}

		created, err := tx.Users.Create(ctx, repository.UserCreateParams{Name: name, PasswordHash: digest, Salt: salt})
		if err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				metrics.ConflictsTotal.WithLabelValues("user", "constraint").Inc()
				return domain.ErrResourceAlreadyExists
			}
			return fmt.Errorf("create user: %w", err)
		}
		user = created
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	metrics.UsersRegisteredTotal.Inc()
	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authenticate checks name and password. Unknown names and wrong passwords
// both yield domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, name, password string) (domain.User, error) {
	user, err := s.authenticator.Authenticate(ctx, name, password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		metrics.AuthFailuresTotal.Inc()
	}
	return user, err
}

// ListUsers returns users ordered by id.
func (s *Service) ListUsers(ctx context.Context, offset, limit *int) ([]domain.User, error) {
	users, err := s.repo.Users.List(ctx, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateMovie registers a movie. Without a release date it asks the metadata
// upstream and falls back to today's UTC date.
func (s *Service) CreateMovie(ctx context.Context, title string, releaseDate *time.Time) (domain.Movie, error) {
	if err := checkName("title", title, domain.MaxTitleLength); err != nil {
		return domain.Movie{}, err
	}

	if _, err := s.repo.Movies.GetByTitle(ctx, title); err == nil {
		metrics.ConflictsTotal.WithLabelValues("movie", "check").Inc()
		return domain.Movie{}, domain.ErrResourceAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Movie{}, fmt.Errorf("lookup movie: %w", err)
	}

	release := s.resolveReleaseDate(ctx, title, releaseDate)

	var movie domain.Movie
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		created, err := tx.Movies.Create(ctx, repository.MovieCreateParams{Title: title, ReleaseDate: release})
		if err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				metrics.ConflictsTotal.WithLabelValues("movie", "constraint").Inc()
				return domain.ErrResourceAlreadyExists
			}
			return fmt.Errorf("create movie: %w", err)
		}
		movie = created
		return nil
	})
	if err != nil {
		return domain.Movie{}, err
	}

	metrics.MoviesCreatedTotal.Inc()
	s.logger.Info().Int64("movie_id", movie.ID).Str("title", movie.Title).Msg("movie created")
	return movie, nil
}

func (s *Service) resolveReleaseDate(ctx context.Context, title string, requested *time.Time) time.Time {
	if requested != nil {
		return dateOnly(*requested)
	}
	result, err := s.metadata.Fetch(ctx, title)
	switch {
	case err == nil && result.ReleaseDate != nil:
		return dateOnly(*result.ReleaseDate)
	case err != nil && !errors.Is(err, metadata.ErrNotFound):
		s.logger.Warn().Err(err).Str("title", title).Msg("metadata lookup failed; using current date")
	}
	return dateOnly(s.now())
}

// GetMovie returns one movie.
func (s *Service) GetMovie(ctx context.Context, id int64) (domain.Movie, error) {
	movie, err := s.repo.Movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, translate(err, "get movie")
	}
	return movie, nil
}

// MovieFilter narrows ListMovies. Nil fields are not applied.
type MovieFilter struct {
	Substr *string
	Year   *int
	Top    *int
	Offset *int
	Limit  *int
}

// ListMovies returns movies matching filter.
func (s *Service) ListMovies(ctx context.Context, filter MovieFilter) ([]domain.Movie, error) {
	movies, err := s.repo.Movies.List(ctx, repository.MovieListFilters{
		Substr: filter.Substr,
		Year:   filter.Year,
		Top:    filter.Top,
		Page:   repository.Page{Offset: filter.Offset, Limit: filter.Limit},
	})
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// CreateReview records userID's rating of movieID and folds it into the
// movie's aggregate. The movie row stays locked until commit, so concurrent
// reviews of one movie apply one after another.
func (s *Service) CreateReview(ctx context.Context, movieID, userID int64, rating int, comment string) (domain.Review, error) {
	var (
		review domain.Review
		movie  domain.Movie
	)
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		locked, err := tx.Movies.GetForUpdate(ctx, movieID)
		if err != nil {
			return translate(err, "lock movie")
		}

		exists, err := tx.Reviews.Exists(ctx, userID, movieID)
		if err != nil {
			return fmt.Errorf("check review: %w", err)
		}
		if exists {
			metrics.ConflictsTotal.WithLabelValues("review", "check").Inc()
			return domain.ErrDuplicateReview
		}

		if err := domain.ValidateRating(rating); err != nil {
			return err
		}

		created, err := tx.Reviews.Create(ctx, repository.ReviewCreateParams{
			MovieID: movieID,
			UserID:  userID,
			Rating:  rating,
			Comment: comment,
		})
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrUniqueViolation):
				// Constraint backstop; the row lock and EXISTS check normally answer first.
				metrics.ConflictsTotal.WithLabelValues("review", "constraint").Inc()
				return domain.ErrDuplicateReview
			case errors.Is(err, repository.ErrForeignKeyViolation):
				return fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
			}
			return fmt.Errorf("create review: %w", err)
		}

		locked.ApplyReview(rating)
		updated, err := tx.Movies.UpdateAggregates(ctx, locked)
		if err != nil {
			return fmt.Errorf("update aggregates: %w", err)
		}
		review, movie = created, updated
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	metrics.ReviewsCreatedTotal.Inc()
	s.logger.Info().
		Int64("movie_id", movieID).
		Int64("user_id", userID).
		Int("rating", rating).
		Str("ratings_avg", movie.FormattedAverage()).
		Msg("review created")
	return review, nil
}

// ListReviews returns the reviews of movieID in insertion order.
func (s *Service) ListReviews(ctx context.Context, movieID int64, offset, limit *int) ([]domain.Review, error) {
	if _, err := s.repo.Movies.GetByID(ctx, movieID); err != nil {
		return nil, translate(err, "get movie")
	}
	reviews, err := s.repo.Reviews.ListByMovie(ctx, movieID, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// MovieReviewedBy reports whether userID has reviewed movieID.
func (s *Service) MovieReviewedBy(ctx context.Context, userID, movieID int64) (bool, error) {
	exists, err := s.repo.Reviews.Exists(ctx, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

// translate maps repository.ErrNotFound onto domain.ErrNotFound.
func translate(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func checkName(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrInvalidInput, field, maxLen)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
