package models

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// ToggleFollow makes actorID follow targetID, or unfollow when the edge
// already exists. A follow edge is a single row, so the follower and
// following sides can never disagree.
func (s *Store) ToggleFollow(ctx context.Context, actorID, targetID string) (FollowState, error) {
	if actorID == targetID {
		return "", ErrSelfFollow
	}
	var state FollowState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{actorID, targetID} {
			ok, err := userExists(ctx, tx, id)
			if err != nil {
				return errors.Wrap(err, "checking user")
			}
			if !ok {
				return NotFound("User not found")
			}
		}
		added, err := insertOrDelete(ctx, tx,
			`INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
			`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
			actorID, targetID, s.Clock.NowUtc())
		if err != nil {
			return errors.Wrap(err, "toggling follow")
		}
		state = Unfollowed
		if added {
			state = Followed
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

// ToggleBookmark saves postID for userID, or removes it when already saved.
func (s *Store) ToggleBookmark(ctx context.Context, postID, userID string) (BookmarkState, error) {
	var state BookmarkState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := postExists(ctx, tx, postID)
		if err != nil {
			return errors.Wrap(err, "checking post")
		}
		if !ok {
			return NotFound("Post not found")
		}
		if ok, err = userExists(ctx, tx, userID); err != nil {
			return errors.Wrap(err, "checking user")
		} else if !ok {
			return NotFound("User not found")
		}
		added, err := insertOrDelete(ctx, tx,
			`INSERT INTO bookmarks (user_id, post_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, post_id) DO NOTHING`,
			`DELETE FROM bookmarks WHERE user_id = $1 AND post_id = $2`,
			userID, postID, s.Clock.NowUtc())
		if err != nil {
			return errors.Wrap(err, "toggling bookmark")
		}
		state = Unsaved
		if added {
			state = Saved
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

// insertOrDelete inserts the (a, b) row, or deletes it when it already
// exists. It reports whether the row was inserted.
func insertOrDelete(ctx context.Context, tx *sql.Tx, insert, del, a, b string, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, insert, a, b, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	_, err = tx.ExecContext(ctx, del, a, b)
	return false, err
}
