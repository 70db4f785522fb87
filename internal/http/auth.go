package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/Clark-Hu/kinoapp/internal/domain"
)

type ctxKey int

const userKey ctxKey = iota

const authRealm = `Basic realm="kinoapp"`

// requireBasicAuth resolves HTTP Basic credentials to a user and stores it
// in the request context.
func (s *Server) requireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, password, ok := r.BasicAuth()
		if !ok {
			s.respondError(w, r, domain.ErrInvalidCredentials)
			return
		}
		user, err := s.svc.Authenticate(r.Context(), name, password)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				s.logger.Error().Err(err).Msg("authenticate")
			}
			s.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}
