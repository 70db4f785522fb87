package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/kinoapp/internal/domain"
	"github.com/Clark-Hu/kinoapp/internal/testdb"
)

var testDB *testdb.DB

func TestMain(m *testing.M) {
	testdb.Main(m, "kinoapp_repository", &testDB)
}

type testEnv struct {
	ctx        context.Context
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	testDB.Reset(t)
	return &testEnv{
		ctx:        context.Background(),
		repository: NewWithPool(testDB.Pool),
	}
}

func intPtr(v int) *int { return &v }

func mustCreateMovie(t testing.TB, env *testEnv, title string) domain.Movie {
	t.Helper()
	return mustCreateMovieOn(t, env, title, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func mustCreateMovieOn(t testing.TB, env *testEnv, title string, release time.Time) domain.Movie {
	t.Helper()
	movie, err := env.repository.Movies.Create(env.ctx, MovieCreateParams{Title: title, ReleaseDate: release})
	if err != nil {
		t.Fatalf("create movie %q: %v", title, err)
	}
	return movie
}

func mustCreateUser(t testing.TB, env *testEnv, name string) domain.User {
	t.Helper()
	user, err := env.repository.Users.Create(env.ctx, UserCreateParams{Name: name, PasswordHash: "digest", Salt: "salt"})
	if err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return user
}

func TestUsersRepository_CreateGetList(t *testing.T) {
	env := newTestEnv(t)

	alice := mustCreateUser(t, env, "alice")
	mustCreateUser(t, env, "bob")
	mustCreateUser(t, env, "carol")

	got, err := env.repository.Users.GetByName(env.ctx, "alice")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.ID != alice.ID || got.PasswordHash != "digest" || got.Salt != "salt" {
		t.Fatalf("GetByName = %+v, want %+v", got, alice)
	}

	if _, err := env.repository.Users.GetByID(env.ctx, alice.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := env.repository.Users.GetByName(env.ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByName(missing) error = %v, want ErrNotFound", err)
	}

	page, err := env.repository.Users.List(env.ctx, Page{Offset: intPtr(1), Limit: intPtr(2)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].Name != "bob" || page[1].Name != "carol" {
		t.Fatalf("List(offset=1,limit=2) = %+v", page)
	}
}

func TestUsersRepository_UniqueName(t *testing.T) {
	env := newTestEnv(t)
	mustCreateUser(t, env, "alice")

	_, err := env.repository.Users.Create(env.ctx, UserCreateParams{Name: "alice", PasswordHash: "x", Salt: "y"})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate user error = %v, want ErrUniqueViolation", err)
	}
	var constraintErr *ConstraintError
	if !errors.As(err, &constraintErr) || constraintErr.Constraint != "users_name_key" {
		t.Fatalf("constraint = %+v, want users_name_key", constraintErr)
	}
}

func TestMoviesRepository_CreateGet(t *testing.T) {
	env := newTestEnv(t)

	movie := mustCreateMovie(t, env, "Inception")
	if movie.RatingsCount != 0 || movie.RatingsAvg != 0 || movie.CommentsCount != 0 {
		t.Fatalf("fresh movie has non-zero aggregates: %+v", movie)
	}

	byTitle, err := env.repository.Movies.GetByTitle(env.ctx, "Inception")
	if err != nil {
		t.Fatalf("GetByTitle: %v", err)
	}
	if byTitle.ID != movie.ID {
		t.Fatalf("GetByTitle id = %d, want %d", byTitle.ID, movie.ID)
	}
	if !byTitle.ReleaseDate.Equal(time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("release date = %v", byTitle.ReleaseDate)
	}

	if _, err := env.repository.Movies.GetByID(env.ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown ID, got %v", err)
	}

	if _, err := env.repository.Movies.Create(env.ctx, MovieCreateParams{Title: "Inception", ReleaseDate: time.Now()}); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate title error = %v, want ErrUniqueViolation", err)
	}
}

func TestMoviesRepository_ListFilters(t *testing.T) {
	env := newTestEnv(t)

	mustCreateMovieOn(t, env, "Inception", time.Date(2010, 7, 16, 0, 0, 0, 0, time.UTC))
	mustCreateMovieOn(t, env, "Interstellar", time.Date(2014, 11, 7, 0, 0, 0, 0, time.UTC))
	mustCreateMovieOn(t, env, "Tenet", time.Date(2020, 8, 26, 0, 0, 0, 0, time.UTC))
	mustCreateMovieOn(t, env, "100%_Wolf", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		filters MovieListFilters
		want    []string
	}{
		{"all", MovieListFilters{}, []string{"Inception", "Interstellar", "Tenet", "100%_Wolf"}},
		{"substr case-insensitive", MovieListFilters{Substr: strPtr("in")}, []string{"Inception", "Interstellar"}},
		{"substr no match", MovieListFilters{Substr: strPtr("wrong")}, nil},
		{"substr percent literal", MovieListFilters{Substr: strPtr("%_")}, []string{"100%_Wolf"}},
		{"year", MovieListFilters{Year: intPtr(2020)}, []string{"Tenet", "100%_Wolf"}},
		{"year none", MovieListFilters{Year: intPtr(2000)}, nil},
		{"limit", MovieListFilters{Page: Page{Limit: intPtr(2)}}, []string{"Inception", "Interstellar"}},
		{"offset", MovieListFilters{Page: Page{Offset: intPtr(3)}}, []string{"100%_Wolf"}},
		{"offset past end", MovieListFilters{Page: Page{Offset: intPtr(10), Limit: intPtr(2)}}, nil},
		{"zero limit", MovieListFilters{Page: Page{Limit: intPtr(0)}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies, err := env.repository.Movies.List(env.ctx, tt.filters)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			assertTitles(t, movies, tt.want)
		})
	}
}

func TestMoviesRepository_ListTop(t *testing.T) {
	env := newTestEnv(t)

	low := mustCreateMovie(t, env, "Low")
	high := mustCreateMovie(t, env, "High")
	mustCreateMovie(t, env, "Unrated")
	tie := mustCreateMovie(t, env, "Tie")

	rated := []struct {
		movie  domain.Movie
		rating int
	}{{low, 3}, {high, 9}, {tie, 9}}
	for _, r := range rated {
		r.movie.ApplyReview(r.rating)
		if _, err := env.repository.Movies.UpdateAggregates(env.ctx, r.movie); err != nil {
			t.Fatalf("update aggregates: %v", err)
		}
	}

	movies, err := env.repository.Movies.List(env.ctx, MovieListFilters{Top: intPtr(3)})
	if err != nil {
		t.Fatalf("List top: %v", err)
	}
	assertTitles(t, movies, []string{"High", "Tie", "Low"})

	movies, err = env.repository.Movies.List(env.ctx, MovieListFilters{Top: intPtr(3), Page: Page{Limit: intPtr(1)}})
	if err != nil {
		t.Fatalf("List top with limit: %v", err)
	}
	assertTitles(t, movies, []string{"High"})
}

func TestReviewsRepository_CreateListExists(t *testing.T) {
	env := newTestEnv(t)

	user := mustCreateUser(t, env, "alice")
	other := mustCreateUser(t, env, "bob")
	movie := mustCreateMovie(t, env, "Inception")
	second := mustCreateMovie(t, env, "Tenet")

	exists, err := env.repository.Reviews.Exists(env.ctx, user.ID, movie.ID)
	if err != nil || exists {
		t.Fatalf("Exists before insert = %v, %v", exists, err)
	}

	first, err := env.repository.Reviews.Create(env.ctx, ReviewCreateParams{MovieID: movie.ID, UserID: user.ID, Rating: 8, Comment: "great"})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if _, err := env.repository.Reviews.Create(env.ctx, ReviewCreateParams{MovieID: movie.ID, UserID: other.ID, Rating: 4, Comment: "meh"}); err != nil {
		t.Fatalf("create second review: %v", err)
	}
	if _, err := env.repository.Reviews.Create(env.ctx, ReviewCreateParams{MovieID: second.ID, UserID: user.ID, Rating: 1, Comment: "ok"}); err != nil {
		t.Fatalf("create review on other movie: %v", err)
	}

	exists, err = env.repository.Reviews.Exists(env.ctx, user.ID, movie.ID)
	if err != nil || !exists {
		t.Fatalf("Exists after insert = %v, %v", exists, err)
	}

	reviews, err := env.repository.Reviews.ListByMovie(env.ctx, movie.ID, Page{Offset: intPtr(0), Limit: intPtr(1)})
	if err != nil {
		t.Fatalf("ListByMovie: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ID != first.ID {
		t.Fatalf("ListByMovie first page = %+v, want review %d", reviews, first.ID)
	}

	all, err := env.repository.Reviews.ListByMovie(env.ctx, movie.ID, Page{})
	if err != nil {
		t.Fatalf("ListByMovie all: %v", err)
	}
	if len(all) != 2 || all[0].Comment != "great" || all[1].Comment != "meh" {
		t.Fatalf("ListByMovie all = %+v", all)
	}
}

func TestReviewsRepository_Constraints(t *testing.T) {
	env := newTestEnv(t)

	user := mustCreateUser(t, env, "alice")
	movie := mustCreateMovie(t, env, "Inception")

	params := ReviewCreateParams{MovieID: movie.ID, UserID: user.ID, Rating: 5, Comment: "ok"}
	if _, err := env.repository.Reviews.Create(env.ctx, params); err != nil {
		t.Fatalf("create review: %v", err)
	}
	if _, err := env.repository.Reviews.Create(env.ctx, params); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate review error = %v, want ErrUniqueViolation", err)
	}

	params.MovieID = 424242
	if _, err := env.repository.Reviews.Create(env.ctx, params); !errors.Is(err, ErrForeignKeyViolation) {
		t.Fatalf("unknown movie error = %v, want ErrForeignKeyViolation", err)
	}

	params.MovieID = movie.ID
	params.UserID = mustCreateUser(t, env, "bob").ID
	params.Rating = 11
	if _, err := env.repository.Reviews.Create(env.ctx, params); err == nil {
		t.Fatalf("expected check constraint to reject rating 11")
	}
}

func TestRepository_InTxRollsBack(t *testing.T) {
	env := newTestEnv(t)

	sentinel := errors.New("abort")
	err := env.repository.InTx(env.ctx, func(tx *Repository) error {
		if _, err := tx.Movies.Create(env.ctx, MovieCreateParams{Title: "Ghost", ReleaseDate: time.Now()}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("InTx error = %v, want sentinel", err)
	}
	if _, err := env.repository.Movies.GetByTitle(env.ctx, "Ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back movie still visible: %v", err)
	}
}

func TestMoviesRepository_ConcurrentLockedUpdates(t *testing.T) {
	env := newTestEnv(t)

	movie := mustCreateMovie(t, env, "Concurrent Movie")
	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			err := env.repository.InTx(env.ctx, func(tx *Repository) error {
				locked, err := tx.Movies.GetForUpdate(env.ctx, movie.ID)
				if err != nil {
					return err
				}
				locked.ApplyReview(rating)
				_, err = tx.Movies.UpdateAggregates(env.ctx, locked)
				return err
			})
			if err != nil {
				t.Errorf("locked update %d: %v", rating, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := env.repository.Movies.GetByID(env.ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RatingsCount != workers || got.RatingsSum != 45 {
		t.Fatalf("aggregates after concurrent updates = sum %d count %d, want 45/%d", got.RatingsSum, got.RatingsCount, workers)
	}
	if got.FormattedAverage() != "4.5" {
		t.Fatalf("average = %s, want 4.5", got.FormattedAverage())
	}
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		page       Page
		wantOffset int
		wantLimit  int
	}{
		{Page{}, 0, DefaultLimit},
		{Page{Offset: intPtr(-5), Limit: intPtr(-1)}, 0, 0},
		{Page{Offset: intPtr(7), Limit: intPtr(MaxLimit + 1)}, 7, MaxLimit},
	}
	for i, tt := range tests {
		offset, limit := tt.page.window()
		if offset != tt.wantOffset || limit != tt.wantLimit {
			t.Fatalf("case %d: window() = (%d, %d), want (%d, %d)", i, offset, limit, tt.wantOffset, tt.wantLimit)
		}
	}
}

func BenchmarkMoviesRepositoryCreate(b *testing.B) {
	env := newTestEnv(b)

	for i := 0; i < b.N; i++ {
		_, err := env.repository.Movies.Create(env.ctx, MovieCreateParams{
			Title:       fmt.Sprintf("Bench Movie %d", i),
			ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			b.Fatalf("create movie: %v", err)
		}
	}
}

func strPtr(v string) *string { return &v }

func assertTitles(t *testing.T, movies []domain.Movie, want []string) {
	t.Helper()
	if len(movies) != len(want) {
		t.Fatalf("got %d movies %+v, want %v", len(movies), movies, want)
	}
	for i, m := range movies {
		if m.Title != want[i] {
			t.Fatalf("movie[%d] = %q, want %q", i, m.Title, want[i])
		}
	}
}
