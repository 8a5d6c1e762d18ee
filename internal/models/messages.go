package models

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// canonicalPair orders two participant ids so that {a,b} and {b,a} map to the
// same conversation row.
func canonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// SendMessage appends a message to the conversation between sender and
// receiver, creating the conversation on first use. The conversation is
// upserted on the canonical pair so concurrent first messages share one row.
func (s *Store) SendMessage(ctx context.Context, senderID, receiverID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Validation("Please provide a message")
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	msg := &Message{
		ID:         newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  s.Clock.NowUtc(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{senderID, receiverID} {
			ok, err := userExists(ctx, tx, id)
			if err != nil {
				return errors.Wrap(err, "checking user")
			}
			if !ok {
				return NotFound("User not found")
			}
		}
		a, b := canonicalPair(senderID, receiverID)
		_, err := tx.ExecContext(ctx, `INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (participant_a, participant_b) DO NOTHING`, newID(), a, b, msg.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "upserting conversation")
		}
		err = tx.QueryRowContext(ctx, `SELECT id FROM conversations WHERE participant_a = $1 AND participant_b = $2`, a, b).
			Scan(&msg.ConversationID)
		if err != nil {
			return errors.Wrap(err, "loading conversation")
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, sender_id, receiver_id, text, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Text, msg.CreatedAt)
		return errors.Wrap(err, "inserting message")
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation returns the conversation between a and b with its messages
// oldest first. When the pair has never talked the result has no id and no
// messages.
func (s *Store) GetConversation(ctx context.Context, a, b string) (*Conversation, error) {
	pa, pb := canonicalPair(a, b)
	conv := &Conversation{Participants: []string{pa, pb}, Messages: []Message{}}
	err := s.DB.QueryRowContext(ctx, `SELECT id, created_at FROM conversations WHERE participant_a = $1 AND participant_b = $2`, pa, pb).
		Scan(&conv.ID, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return conv, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading conversation")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, conversation_id, sender_id, receiver_id, text, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`, conv.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Text, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning message")
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv, errors.Wrap(rows.Err(), "listing messages")
}
