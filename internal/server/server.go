package server

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/rs/cors"

	"social/internal/auth"
	"social/internal/media"
	"social/internal/models"
	"social/internal/storage"
)

// APIPrefix is where every JSON route is mounted.
const APIPrefix = "/api/v1"

// Deps are the collaborators a Server is built from. Store, Issuer and
// Uploads are required.
type Deps struct {
	Store   *models.Store
	Issuer  *auth.Issuer
	Images  *media.Processor
	Uploads storage.Uploader
	// Files, when set, is served at storage.DiskPrefix.
	Files      http.Handler
	Logger     *log.Logger
	CORSOrigin string
}

type Server struct {
	Store      *models.Store
	Issuer     *auth.Issuer
	Images     *media.Processor
	Uploads    storage.Uploader
	Log        *log.Logger
	CookieName string

	handler http.Handler
}

func New(d Deps) *Server {
	s := &Server{
		Store:      d.Store,
		Issuer:     d.Issuer,
		Images:     d.Images,
		Uploads:    d.Uploads,
		Log:        d.Logger,
		CookieName: "token",
	}
	if s.Images == nil {
		s.Images = media.NewProcessor()
	}
	if s.Log == nil {
		s.Log = log.New(os.Stderr, "social ", log.LstdFlags)
	}

	var h http.Handler = s.routes(d.Files)
	if d.CORSOrigin != "" {
		h = cors.New(cors.Options{
			AllowedOrigins:   []string{d.CORSOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowCredentials: true,
		}).Handler(h)
	}
	s.handler = s.logRequests(h)
	return s
}

func (s *Server) routes(files http.Handler) http.Handler {
	mux := http.NewServeMux()
	api := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+APIPrefix+path, h)
	}

	api("POST /user/register", s.handle("User cannot be registered, please try again later", s.register))
	api("POST /user/login", s.handle("User cannot be logged in, please try again later", s.login))
	api("GET /user/logout", s.handle("User cannot be logged out, please try again later", s.logout))
	api("GET /user/{id}/profile", s.requireAuth("User profile cannot be retrieved, please try again later", s.getProfile))
	api("POST /user/profile/edit", s.requireAuth("User profile cannot be edited, please try again later", s.editProfile))
	api("GET /user/suggested", s.requireAuth("Could not find suggested users", s.suggestedUsers))
	api("POST /user/followOrUnfollow/{id}", s.requireAuth("Could not follow or unfollow user", s.followOrUnfollow))

	api("POST /post/addpost", s.requireAuth("Post cannot be added, please try again later", s.addPost))
	api("GET /post/all", s.requireAuth("Posts cannot be retrieved, please try again later", s.allPosts))
	api("GET /post/userpost/all", s.requireAuth("User's posts cannot be retrieved, please try again later", s.userPosts))
	api("GET /post/{id}/like", s.requireAuth("Post cannot be liked, please try again later", s.likePost))
	api("GET /post/{id}/dislike", s.requireAuth("Post cannot be disliked, please try again later", s.dislikePost))
	api("POST /post/{id}/comment", s.requireAuth("Comment cannot be added, please try again later", s.addComment))
	api("POST /post/{id}/comment/all", s.requireAuth("Comments cannot be retrieved, please try again later", s.postComments))
	api("DELETE /post/delete/{id}", s.requireAuth("Post cannot be deleted, please try again later", s.deletePost))
	api("POST /post/{id}/bookmark", s.requireAuth("Post cannot be bookmarked, please try again later", s.bookmarkPost))

	api("POST /message/send/{id}", s.requireAuth("Message cannot be sent, please try again later", s.sendMessage))
	api("GET /message/{id}", s.requireAuth("Message cannot be retrieved, please try again later", s.getMessages))

	mux.HandleFunc("GET /healthz", s.handle("Database unavailable", s.health))
	if files != nil {
		mux.Handle("GET "+storage.DiskPrefix, files)
	}
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) health(r *http.Request) (*reply, error) {
	if err := s.Store.DB.PingContext(r.Context()); err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: done("ok")}, nil
}
