package models

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

const postSelect = `SELECT p.id, p.caption, p.image, p.created_at, u.id, u.username, u.profile_picture
	FROM posts p JOIN users u ON u.id = p.author_id`

// CreatePost stores a post whose image has already been uploaded to imageURL.
func (s *Store) CreatePost(ctx context.Context, authorID, caption, imageURL string) (*Post, error) {
	if imageURL == "" {
		return nil, ErrMissingImage
	}
	ok, err := userExists(ctx, s.DB, authorID)
	if err != nil {
		return nil, errors.Wrap(err, "checking author")
	}
	if !ok {
		return nil, NotFound("User not found")
	}
	id := newID()
	_, err = s.DB.ExecContext(ctx, `INSERT INTO posts (id, author_id, caption, image, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, authorID, strings.TrimSpace(caption), imageURL, s.Clock.NowUtc())
	if err != nil {
		return nil, errors.Wrap(err, "inserting post")
	}
	return s.GetPost(ctx, id)
}

func (s *Store) GetPost(ctx context.Context, id string) (*Post, error) {
	posts, err := s.listPosts(ctx, ` WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, NotFound("Post not found")
	}
	return &posts[0], nil
}

// ListPosts returns every post, newest first, with authors, likes and comments.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	return s.listPosts(ctx, "")
}

// ListPostsByAuthor returns the posts of one author, newest first.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return s.listPosts(ctx, ` WHERE p.author_id = $1`, authorID)
}

func (s *Store) listPosts(ctx context.Context, where string, args ...any) ([]Post, error) {
	rows, err := s.DB.QueryContext(ctx, postSelect+where+` ORDER BY p.created_at DESC, p.id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing posts")
	}
	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Caption, &p.Image, &p.CreatedAt, &p.Author.ID, &p.Author.Username, &p.Author.ProfilePicture); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scanning post")
		}
		posts = append(posts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing posts")
	}

	for i := range posts {
		likes, err := queryIDs(ctx, s.DB, `SELECT user_id FROM post_likes WHERE post_id = $1 ORDER BY created_at`, posts[i].ID)
		if err != nil {
			return nil, errors.Wrap(err, "loading likes")
		}
		posts[i].Likes = likes
		comments, err := listComments(ctx, s.DB, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Comments = comments
	}
	return posts, nil
}

// LikePost adds userID to the post's likes. Liking twice changes nothing.
func (s *Store) LikePost(ctx context.Context, postID, userID string) error {
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID, s.Clock.NowUtc())
	return errors.Wrap(err, "liking post")
}

// DislikePost removes userID from the post's likes, if present.
func (s *Store) DislikePost(ctx context.Context, postID, userID string) error {
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	return errors.Wrap(err, "disliking post")
}

func (s *Store) AddComment(ctx context.Context, postID, authorID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Validation("Please provide a comment")
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	author, err := s.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	c := &Comment{
		ID:        newID(),
		Text:      text,
		PostID:    postID,
		Author:    Author{ID: author.ID, Username: author.Username, ProfilePicture: author.ProfilePicture},
		CreatedAt: s.Clock.NowUtc(),
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO comments (id, post_id, author_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.PostID, c.Author.ID, c.Text, c.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

// ListComments returns the comments of a post, newest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return listComments(ctx, s.DB, postID)
}

func listComments(ctx context.Context, q queryer, postID string) ([]Comment, error) {
	rows, err := q.QueryContext(ctx, `SELECT c.id, c.post_id, c.text, c.created_at, u.id, u.username, u.profile_picture
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1 ORDER BY c.created_at DESC, c.id`, postID)
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	defer rows.Close()
	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Text, &c.CreatedAt, &c.Author.ID, &c.Author.Username, &c.Author.ProfilePicture); err != nil {
			return nil, errors.Wrap(err, "scanning comment")
		}
		comments = append(comments, c)
	}
	return comments, errors.Wrap(rows.Err(), "listing comments")
}

// DeletePost removes a post owned by requesterID together with its comments,
// likes and bookmarks, all in one transaction.
func (s *Store) DeletePost(ctx context.Context, postID, requesterID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var authorID string
		err := tx.QueryRowContext(ctx, `SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID)
		if err == sql.ErrNoRows {
			return NotFound("Post not found")
		}
		if err != nil {
			return errors.Wrap(err, "loading post")
		}
		if authorID != requesterID {
			return Forbidden("Unauthorized")
		}
		for _, stmt := range []string{
			`DELETE FROM post_likes WHERE post_id = $1`,
			`DELETE FROM bookmarks WHERE post_id = $1`,
			`DELETE FROM comments WHERE post_id = $1`,
			`DELETE FROM posts WHERE id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, postID); err != nil {
				return errors.Wrap(err, "deleting post")
			}
		}
		return nil
	})
}

func (s *Store) requirePost(ctx context.Context, postID string) error {
	ok, err := postExists(ctx, s.DB, postID)
	if err != nil {
		return errors.Wrap(err, "checking post")
	}
	if !ok {
		return NotFound("Post not found")
	}
	return nil
}
