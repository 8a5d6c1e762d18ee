package server

import (
	"net/http"
	"time"

	"social/internal/models"
)

// requireAuth resolves the session cookie to a user before calling next.
func (s *Server) requireAuth(fallback string, next authedFunc) http.HandlerFunc {
	return s.handle(fallback, func(r *http.Request) (*reply, error) {
		user, err := s.currentUser(r)
		if err != nil {
			return nil, err
		}
		return next(r, user)
	})
}

func (s *Server) currentUser(r *http.Request) (*models.User, error) {
	var token string
	if cookie, err := r.Cookie(s.CookieName); err == nil {
		token = cookie.Value
	}
	id, err := s.Issuer.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.Store.GetUser(r.Context(), id)
	if models.KindOf(err) == models.KindNotFound {
		return nil, models.Unauthenticated("User is not authenticated, please login to access this resource", err)
	}
	return user, err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Truncate(time.Microsecond))
	})
}
