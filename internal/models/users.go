package models

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

const userColumns = `id, username, email, password_hash, bio, gender, profile_picture, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.Gender, &u.ProfilePicture, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers an account. The email must not be taken.
func (s *Store) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, Validation("Please provide all required fields")
	}
	taken, err := exists(ctx, s.DB, `SELECT 1 FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, errors.Wrap(err, "checking email")
	}
	if taken {
		return nil, ErrDuplicateEmail
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	u := &User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.Clock.NowUtc(),
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, errors.Wrap(err, "inserting user")
	}
	return u, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, Validation("Please provide all required fields")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return getUser(ctx, s.DB, id)
}

func getUser(ctx context.Context, q queryer, id string) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, NotFound("User not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading user")
	}
	return u, nil
}

// GetProfile loads a user with its followers, following, posts (oldest first)
// and bookmarks.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: *u}
	lists := []struct {
		dst   *[]string
		query string
	}{
		{&p.Followers, `SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY created_at`},
		{&p.Following, `SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY created_at`},
		{&p.Posts, `SELECT id FROM posts WHERE author_id = $1 ORDER BY created_at, id`},
		{&p.Bookmarks, `SELECT post_id FROM bookmarks WHERE user_id = $1 ORDER BY created_at`},
	}
	for _, l := range lists {
		ids, err := queryIDs(ctx, s.DB, l.query, id)
		if err != nil {
			return nil, errors.Wrap(err, "loading profile")
		}
		*l.dst = ids
	}
	return p, nil
}

// SuggestedUsers lists every user except viewer, newest accounts first.
func (s *Store) SuggestedUsers(ctx context.Context, viewer string) ([]User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY created_at DESC`, viewer)
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, *u)
	}
	return users, errors.Wrap(rows.Err(), "listing users")
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*Profile, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Bio != "" {
		u.Bio = upd.Bio
	}
	if upd.Gender != "" {
		u.Gender = upd.Gender
	}
	if upd.ProfilePicture != "" {
		u.ProfilePicture = upd.ProfilePicture
	}
	_, err = s.DB.ExecContext(ctx, `UPDATE users SET bio = $1, gender = $2, profile_picture = $3 WHERE id = $4`,
		u.Bio, u.Gender, u.ProfilePicture, id)
	if err != nil {
		return nil, errors.Wrap(err, "updating profile")
	}
	return s.GetProfile(ctx, id)
}
