package server

import (
	"net/http"
	"time"

	"social/internal/models"
	"social/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type editProfileRequest struct {
	Bio    string `json:"bio"`
	Gender string `json:"gender"`
}

// sessionUser is the profile returned on login, with the user's own posts
// expanded instead of listed by id.
type sessionUser struct {
	*models.Profile
	Posts []models.Post `json:"posts"`
}

type loginReply struct {
	envelope
	User sessionUser `json:"user"`
}

type profileReply struct {
	envelope
	User *models.Profile `json:"user"`
}

type usersReply struct {
	envelope
	Users []models.User `json:"users"`
}

type followReply struct {
	envelope
	Type models.FollowState `json:"type"`
}

func (s *Server) register(r *http.Request) (*reply, error) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if _, err := s.Store.CreateUser(r.Context(), req.Username, req.Email, req.Password); err != nil {
		return nil, err
	}
	return &reply{status: http.StatusCreated, body: done("User registered successfully")}, nil
}

func (s *Server) login(r *http.Request) (*reply, error) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	user, err := s.Store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	profile, err := s.Store.GetProfile(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.Store.ListPostsByAuthor(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	token, expires, err := s.Issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &reply{
		status: http.StatusOK,
		body: loginReply{
			envelope: done("Welcome back " + user.Username),
			User:     sessionUser{Profile: profile, Posts: posts},
		},
		cookies: []*http.Cookie{s.sessionCookie(r, token, expires)},
	}, nil
}

// logout overwrites the cookie with an already-expired empty value. The token
// itself stays valid until it expires.
func (s *Server) logout(r *http.Request) (*reply, error) {
	return &reply{
		status: http.StatusOK,
		body:   done("User logged out successfully"),
		cookies: []*http.Cookie{{
			Name:     s.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		}},
	}, nil
}

func (s *Server) sessionCookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.Issuer.TTL() / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Server) getProfile(r *http.Request, _ *models.User) (*reply, error) {
	profile, err := s.Store.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: profileReply{done("User profile retrieved successfully"), profile}}, nil
}

func (s *Server) editProfile(r *http.Request, user *models.User) (*reply, error) {
	var req editProfileRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	upd := models.ProfileUpdate{Bio: req.Bio, Gender: req.Gender}
	url, err := s.uploadImage(r, "profilePicture", "profiles", false)
	if err != nil {
		return nil, err
	}
	upd.ProfilePicture = url
	profile, err := s.Store.UpdateProfile(r.Context(), user.ID, upd)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: profileReply{done("User profile edited successfully"), profile}}, nil
}

func (s *Server) suggestedUsers(r *http.Request, user *models.User) (*reply, error) {
	users, err := s.Store.SuggestedUsers(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: usersReply{done("Suggested users retrieved successfully"), users}}, nil
}

func (s *Server) followOrUnfollow(r *http.Request, user *models.User) (*reply, error) {
	state, err := s.Store.ToggleFollow(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	msg := "User followed successfully"
	if state == models.Unfollowed {
		msg = "User unfollowed successfully"
	}
	return &reply{status: http.StatusOK, body: followReply{done(msg), state}}, nil
}

// uploadImage normalises and stores the multipart file in field, returning its
// URL. A missing file yields "" unless required.
func (s *Server) uploadImage(r *http.Request, field, prefix string, required bool) (string, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
			return "", models.Validation("Malformed request body")
		}
	}
	file, _, err := r.FormFile(field)
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		if required {
			return "", models.ErrMissingImage
		}
		return "", nil
	}
	if err != nil {
		return "", models.Validation("Malformed request body")
	}
	defer file.Close()

	data, err := s.Images.Normalize(file)
	if err != nil {
		return "", err
	}
	return s.Uploads.Upload(r.Context(), storage.NewName(prefix, "jpg"), data)
}
