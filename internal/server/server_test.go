package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"social/internal/auth"
	"social/internal/db"
	"social/internal/models"
	"social/internal/util"
)

type memoryUploads struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryUploads) Upload(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return "https://cdn.test/" + name, nil
}

type testEnv struct {
	srv     *Server
	clock   *util.ManualClock
	uploads *memoryUploads
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(db.DriverSQLite, filepath.Join(dir, "test.db"), 4)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	clock := util.NewManualClock()
	uploads := &memoryUploads{objects: map[string][]byte{}}
	srv := New(Deps{
		Store:   models.NewStore(database, clock),
		Issuer:  auth.NewIssuer("test-secret", clock),
		Uploads: uploads,
		Logger:  log.New(io.Discard, "", 0),
	})
	return &testEnv{srv: srv, clock: clock, uploads: uploads}
}

type response struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return response{code: w.Code, body: body, cookies: w.Result().Cookies()}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any, cookie *http.Cookie) response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, APIPrefix+path, body)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, cookie)
}

// signup registers a fresh user, logs in, and returns the user id and cookie.
func (e *testEnv) signup(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	email := gofakeit.Email()
	res := e.doJSON(t, http.MethodPost, "/user/register", map[string]string{
		"username": gofakeit.Username(), "email": email, "password": "secret",
	}, nil)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	res = e.doJSON(t, http.MethodPost, "/user/login", map[string]string{"email": email, "password": "secret"}, nil)
	require.Equal(t, http.StatusOK, res.code, res.body)
	require.Len(t, res.cookies, 1)
	user := res.body["user"].(map[string]any)
	return user["_id"].(string), res.cookies[0]
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 900))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile(fileField, "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) addPost(t *testing.T, cookie *http.Cookie, caption string) map[string]any {
	t.Helper()
	req := multipartRequest(t, "/post/addpost", map[string]string{"caption": caption}, "image", pngImage(t))
	res := e.do(t, req, cookie)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	return res.body["post"].(map[string]any)
}

func TestRegisterLogin(t *testing.T) {
	env := newTestServer(t)
	form := url.Values{"username": {"alice"}, "email": {"a@b.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/user/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := env.do(t, req, nil)
	require.Equal(t, http.StatusCreated, res.code)
	require.Equal(t, true, res.body["success"])

	res = env.doJSON(t, http.MethodPost, "/user/register", map[string]string{"username": "bob", "email": "a@b.com", "password": "x"}, nil)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "Email already exists", res.body["message"])

	res = env.doJSON(t, http.MethodPost, "/user/register", map[string]string{"email": "c@d.com"}, nil)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, false, res.body["success"])

	res = env.doJSON(t, http.MethodPost, "/user/login", map[string]string{"email": "a@b.com", "password": "nope"}, nil)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Empty(t, res.cookies)

	res = env.doJSON(t, http.MethodPost, "/user/login", map[string]string{"email": "a@b.com", "password": "secret"}, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "Welcome back alice", res.body["message"])
	require.Len(t, res.cookies, 1)
	cookie := res.cookies[0]
	require.Equal(t, "token", cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, 7*24*60*60, cookie.MaxAge)

	user := res.body["user"].(map[string]any)
	require.Equal(t, "alice", user["username"])
	require.NotContains(t, user, "PasswordHash")
	require.Equal(t, []any{}, user["posts"])
}

func TestRequireAuth(t *testing.T) {
	env := newTestServer(t)
	res := env.doJSON(t, http.MethodGet, "/post/all", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, false, res.body["success"])

	_, cookie := env.signup(t)
	tampered := *cookie
	tampered.Value = cookie.Value + "x"
	res = env.doJSON(t, http.MethodGet, "/post/all", nil, &tampered)
	require.Equal(t, http.StatusUnauthorized, res.code)

	res = env.doJSON(t, http.MethodGet, "/post/all", nil, cookie)
	require.Equal(t, http.StatusOK, res.code)

	env.clock.Advance(auth.SessionTTL + time.Minute)
	res = env.doJSON(t, http.MethodGet, "/post/all", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, res.code)
}

func TestExpiredTokenHasNoSideEffects(t *testing.T) {
	env := newTestServer(t)
	a, cookieA := env.signup(t)
	b, _ := env.signup(t)

	env.clock.Advance(auth.SessionTTL + time.Second)
	res := env.doJSON(t, http.MethodPost, "/user/followOrUnfollow/"+b, nil, cookieA)
	require.Equal(t, http.StatusUnauthorized, res.code)

	profile, err := env.srv.Store.GetProfile(context.Background(), a)
	require.NoError(t, err)
	require.Empty(t, profile.Following)
}

func TestLogout(t *testing.T) {
	env := newTestServer(t)
	res := env.doJSON(t, http.MethodGet, "/user/logout", nil, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.cookies, 1)
	require.Equal(t, "token", res.cookies[0].Name)
	require.Empty(t, res.cookies[0].Value)
	require.Less(t, res.cookies[0].MaxAge, 0)
}

func TestPostLikeScenario(t *testing.T) {
	env := newTestServer(t)
	_, cookie1 := env.signup(t)
	u2, cookie2 := env.signup(t)

	post := env.addPost(t, cookie1, "hi")
	require.Equal(t, "hi", post["caption"])
	require.Equal(t, []any{}, post["likes"])
	require.Equal(t, []any{}, post["comments"])
	require.True(t, strings.HasPrefix(post["image"].(string), "https://cdn.test/posts/"))
	require.Len(t, env.uploads.objects, 1)
	id := post["_id"].(string)

	res := env.doJSON(t, http.MethodGet, "/post/"+id+"/like", nil, cookie2)
	require.Equal(t, http.StatusOK, res.code)
	res = env.doJSON(t, http.MethodGet, "/post/"+id+"/like", nil, cookie2)
	require.Equal(t, http.StatusOK, res.code)

	res = env.doJSON(t, http.MethodGet, "/post/all", nil, cookie1)
	posts := res.body["posts"].([]any)
	require.Len(t, posts, 1)
	require.Equal(t, []any{u2}, posts[0].(map[string]any)["likes"])

	res = env.doJSON(t, http.MethodGet, "/post/"+id+"/dislike", nil, cookie2)
	require.Equal(t, http.StatusOK, res.code)
	res = env.doJSON(t, http.MethodGet, "/post/all", nil, cookie1)
	require.Equal(t, []any{}, res.body["posts"].([]any)[0].(map[string]any)["likes"])

	res = env.doJSON(t, http.MethodGet, "/post/missing/dislike", nil, cookie2)
	require.Equal(t, http.StatusNotFound, res.code)
	require.Equal(t, "Post not found", res.body["message"])
}

func TestAddPostRequiresImage(t *testing.T) {
	env := newTestServer(t)
	_, cookie := env.signup(t)

	req := multipartRequest(t, "/post/addpost", map[string]string{"caption": "no picture"}, "", nil)
	res := env.do(t, req, cookie)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "Please provide an image", res.body["message"])

	req = multipartRequest(t, "/post/addpost", nil, "image", []byte("not an image"))
	res = env.do(t, req, cookie)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Empty(t, env.uploads.objects)
}

func TestUserPostsAndComments(t *testing.T) {
	env := newTestServer(t)
	_, cookie1 := env.signup(t)
	_, cookie2 := env.signup(t)
	mine := env.addPost(t, cookie1, "mine")
	env.clock.Advance(time.Second)
	env.addPost(t, cookie2, "theirs")

	res := env.doJSON(t, http.MethodGet, "/post/userpost/all", nil, cookie1)
	require.Equal(t, http.StatusOK, res.code)
	posts := res.body["posts"].([]any)
	require.Len(t, posts, 1)
	require.Equal(t, mine["_id"], posts[0].(map[string]any)["_id"])

	id := mine["_id"].(string)
	res = env.doJSON(t, http.MethodPost, "/post/"+id+"/comment", map[string]string{"text": "nice"}, cookie2)
	require.Equal(t, http.StatusCreated, res.code)
	require.Equal(t, "nice", res.body["comment"].(map[string]any)["text"])

	res = env.doJSON(t, http.MethodPost, "/post/"+id+"/comment", map[string]string{"text": ""}, cookie2)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "Please provide a comment", res.body["message"])

	res = env.doJSON(t, http.MethodPost, "/post/"+id+"/comment/all", nil, cookie1)
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.body["comments"].([]any), 1)
}

func TestDeletePost(t *testing.T) {
	env := newTestServer(t)
	author, cookie1 := env.signup(t)
	_, cookie2 := env.signup(t)
	post := env.addPost(t, cookie1, "bye")
	id := post["_id"].(string)
	env.doJSON(t, http.MethodPost, "/post/"+id+"/comment", map[string]string{"text": "c"}, cookie2)

	res := env.doJSON(t, http.MethodDelete, "/post/delete/"+id, nil, cookie2)
	require.Equal(t, http.StatusForbidden, res.code)

	res = env.doJSON(t, http.MethodDelete, "/post/delete/"+id, nil, cookie1)
	require.Equal(t, http.StatusOK, res.code)

	res = env.doJSON(t, http.MethodDelete, "/post/delete/"+id, nil, cookie1)
	require.Equal(t, http.StatusNotFound, res.code)

	res = env.doJSON(t, http.MethodGet, "/user/"+author+"/profile", nil, cookie2)
	require.Equal(t, []any{}, res.body["user"].(map[string]any)["posts"])
}

func TestBookmarkToggle(t *testing.T) {
	env := newTestServer(t)
	_, cookie := env.signup(t)
	id := env.addPost(t, cookie, "save me")["_id"].(string)

	res := env.doJSON(t, http.MethodPost, "/post/"+id+"/bookmark", nil, cookie)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "saved", res.body["type"])

	res = env.doJSON(t, http.MethodPost, "/post/"+id+"/bookmark", nil, cookie)
	require.Equal(t, "unsaved", res.body["type"])

	res = env.doJSON(t, http.MethodPost, "/post/nope/bookmark", nil, cookie)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestFollowOrUnfollow(t *testing.T) {
	env := newTestServer(t)
	a, cookieA := env.signup(t)
	b, _ := env.signup(t)

	res := env.doJSON(t, http.MethodPost, "/user/followOrUnfollow/"+b, nil, cookieA)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "User followed successfully", res.body["message"])
	require.Equal(t, "followed", res.body["type"])

	res = env.doJSON(t, http.MethodGet, "/user/"+b+"/profile", nil, cookieA)
	require.Equal(t, []any{a}, res.body["user"].(map[string]any)["followers"])

	res = env.doJSON(t, http.MethodPost, "/user/followOrUnfollow/"+b, nil, cookieA)
	require.Equal(t, "User unfollowed successfully", res.body["message"])
	require.Equal(t, "unfollowed", res.body["type"])

	res = env.doJSON(t, http.MethodPost, "/user/followOrUnfollow/"+a, nil, cookieA)
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "You cannot follow or unfollow yourself", res.body["message"])

	res = env.doJSON(t, http.MethodPost, "/user/followOrUnfollow/ghost", nil, cookieA)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestProfileEditAndSuggested(t *testing.T) {
	env := newTestServer(t)
	a, cookieA := env.signup(t)
	b, _ := env.signup(t)

	req := multipartRequest(t, "/user/profile/edit", map[string]string{"bio": "hello there"}, "profilePicture", pngImage(t))
	res := env.do(t, req, cookieA)
	require.Equal(t, http.StatusOK, res.code, res.body)
	user := res.body["user"].(map[string]any)
	require.Equal(t, "hello there", user["bio"])
	require.True(t, strings.HasPrefix(user["profilePicture"].(string), "https://cdn.test/profiles/"))

	res = env.doJSON(t, http.MethodPost, "/user/profile/edit", map[string]string{"gender": "female"}, cookieA)
	require.Equal(t, http.StatusOK, res.code, res.body)
	user = res.body["user"].(map[string]any)
	require.Equal(t, "female", user["gender"])
	require.Equal(t, "hello there", user["bio"])

	res = env.doJSON(t, http.MethodGet, "/user/suggested", nil, cookieA)
	require.Equal(t, http.StatusOK, res.code)
	users := res.body["users"].([]any)
	require.Len(t, users, 1)
	require.Equal(t, b, users[0].(map[string]any)["_id"])

	res = env.doJSON(t, http.MethodGet, "/user/"+a+"/profile", nil, cookieA)
	require.Equal(t, http.StatusOK, res.code)
	res = env.doJSON(t, http.MethodGet, "/user/ghost/profile", nil, cookieA)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestMessages(t *testing.T) {
	env := newTestServer(t)
	u1, cookie1 := env.signup(t)
	u2, cookie2 := env.signup(t)

	res := env.doJSON(t, http.MethodGet, "/message/"+u2, nil, cookie1)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, []any{}, res.body["messages"])

	res = env.doJSON(t, http.MethodPost, "/message/send/"+u2, map[string]string{"message": "hello"}, cookie1)
	require.Equal(t, http.StatusOK, res.code, res.body)
	first := res.body["newMessage"].(map[string]any)

	env.clock.Advance(time.Second)
	res = env.doJSON(t, http.MethodPost, "/message/send/"+u1, map[string]string{"message": "hi"}, cookie2)
	require.Equal(t, http.StatusOK, res.code)
	second := res.body["newMessage"].(map[string]any)
	require.Equal(t, first["conversationId"], second["conversationId"])

	res = env.doJSON(t, http.MethodGet, "/message/"+u1, nil, cookie2)
	require.Equal(t, first["conversationId"], res.body["conversationId"])
	msgs := res.body["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].(map[string]any)["message"])
	require.Equal(t, "hi", msgs[1].(map[string]any)["message"])

	res = env.doJSON(t, http.MethodPost, "/message/send/"+u1, map[string]string{"message": "me"}, cookie1)
	require.Equal(t, http.StatusBadRequest, res.code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestServer(t)
	srv := New(Deps{
		Store:      env.srv.Store,
		Issuer:     env.srv.Issuer,
		Uploads:    env.uploads,
		Logger:     log.New(io.Discard, "", 0),
		CORSOrigin: "http://localhost:5173",
	})

	req := httptest.NewRequest(http.MethodOptions, APIPrefix+"/post/all", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Less(t, w.Code, 300)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, APIPrefix+"/post/all", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	env := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := env.do(t, req, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, true, res.body["success"])
}
