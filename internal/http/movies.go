package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/kinoapp/internal/domain"
	"github.com/Clark-Hu/kinoapp/internal/service"
)

const dateLayout = "2006-01-02"

type movieCreateRequest struct {
	Title       string `json:"title" validate:"required,max=50"`
	ReleaseDate string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

type movieResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ReleaseDate   string `json:"release_date"`
	RatingsAvg    string `json:"ratings_avg"`
	RatingsSum    int64  `json:"ratings_sum"`
	RatingsCount  int64  `json:"ratings_count"`
	CommentsCount int64  `json:"comments_count"`
}

func toMovieResponse(m domain.Movie) movieResponse {
	return movieResponse{
		ID:            m.ID,
		Title:         m.Title,
		ReleaseDate:   m.ReleaseDate.Format(dateLayout),
		RatingsAvg:    m.FormattedAverage(),
		RatingsSum:    m.RatingsSum,
		RatingsCount:  m.RatingsCount,
		CommentsCount: m.CommentsCount,
	}
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filter, err := buildMovieFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	movies, err := s.svc.ListMovies(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func buildMovieFilter(query url.Values) (service.MovieFilter, error) {
	var filter service.MovieFilter

	if substr := strings.TrimSpace(query.Get("substr")); substr != "" {
		filter.Substr = &substr
	}
	year, err := optionalInt(query, "year", 1, 9999)
	if err != nil {
		return filter, err
	}
	filter.Year = year
	top, err := optionalInt(query, "top", 1, 0)
	if err != nil {
		return filter, err
	}
	filter.Top = top

	page, err := parsePage(query)
	if err != nil {
		return filter, err
	}
	filter.Offset, filter.Limit = page.Offset, page.Limit
	return filter, nil
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	var releaseDate *time.Time
	if req.ReleaseDate != "" {
		parsed, err := time.Parse(dateLayout, req.ReleaseDate)
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "release_date must follow YYYY-MM-DD format")
			return
		}
		releaseDate = &parsed
	}

	movie, err := s.svc.CreateMovie(r.Context(), req.Title, releaseDate)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%d", movie.ID))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := movieIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	movie, err := s.svc.GetMovie(r.Context(), movieID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}
