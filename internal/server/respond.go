package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"social/internal/media"
	"social/internal/models"
)

// maxBodyBytes leaves room for multipart framing around a full-size image.
const maxBodyBytes = media.MaxUploadBytes + 1<<20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func done(msg string) envelope {
	return envelope{Success: true, Message: msg}
}

// reply is what every handler produces on success. The adapter in handle
// writes it; handlers never touch the ResponseWriter.
type reply struct {
	status  int
	body    any
	cookies []*http.Cookie
}

type handlerFunc func(r *http.Request) (*reply, error)

type authedFunc func(r *http.Request, user *models.User) (*reply, error)

// handle adapts h so that exactly one response is written on every path.
// fallback is shown to the client when h fails with an unclassified error.
func (s *Server) handle(fallback string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		rep, err := h(r)
		s.respond(w, r, rep, err, fallback)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, rep *reply, err error, fallback string) {
	if err == nil && rep == nil {
		err = models.Validation(fallback)
	}
	if err != nil {
		status := statusOf(err)
		s.Log.Printf("%s %s: %d %v", r.Method, r.URL.Path, status, err)
		writeJSON(w, status, envelope{Success: false, Message: models.PublicMessage(err, fallback)})
		return
	}
	for _, c := range rep.cookies {
		http.SetCookie(w, c)
	}
	writeJSON(w, rep.status, rep.body)
}

func statusOf(err error) int {
	switch models.KindOf(err) {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode fills dst from a JSON body, or from url-encoded / multipart form
// fields keyed by dst's json tags. Request structs only carry strings.
func decode(r *http.Request, dst any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			return models.Validation("Malformed request body")
		}
		return nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
			return models.Validation("Malformed request body")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return models.Validation("Malformed request body")
		}
	}
	fields := map[string]string{}
	for k, v := range r.Form {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
