package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

type userCreateRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name}
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.svc.RegisterUser(r.Context(), req.Name, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	users, err := s.svc.ListUsers(r.Context(), page.Offset, page.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	s.respondJSON(w, http.StatusOK, resp)
}
