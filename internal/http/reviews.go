package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

type reviewCreateRequest struct {
	// Pointer so that a missing rating is distinguishable from 0.
	Rating  *int   `json:"rating" validate:"required"`
	Comment string `json:"comment" validate:"max=4000"`
}

type reviewResponse struct {
	ID      int64  `json:"id"`
	MovieID int64  `json:"movie_id"`
	UserID  int64  `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func toReviewResponse(rv domain.Review) reviewResponse {
	return reviewResponse{
		ID:      rv.ID,
		MovieID: rv.MovieID,
		UserID:  rv.UserID,
		Rating:  rv.Rating,
		Comment: rv.Comment,
	}
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	movieID, err := movieIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	user, ok := userFromContext(r.Context())
	if !ok {
		s.respondError(w, r, domain.ErrInvalidCredentials)
		return
	}

	var req reviewCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	review, err := s.svc.CreateReview(r.Context(), movieID, user.ID, *req.Rating, req.Comment)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%d/reviews", movieID))
	s.respondJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	movieID, err := movieIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	reviews, err := s.svc.ListReviews(r.Context(), movieID, page.Offset, page.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	items := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		items = append(items, toReviewResponse(rv))
	}
	s.respondJSON(w, http.StatusOK, items)
}
