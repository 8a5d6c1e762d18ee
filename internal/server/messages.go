package server

import (
	"net/http"

	"social/internal/models"
)

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageReply struct {
	envelope
	NewMessage *models.Message `json:"newMessage"`
}

type conversationReply struct {
	envelope
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []models.Message `json:"messages"`
}

// sendMessage stores the message only; receivers pick it up by polling
// getMessages.
func (s *Server) sendMessage(r *http.Request, user *models.User) (*reply, error) {
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	msg, err := s.Store.SendMessage(r.Context(), user.ID, r.PathValue("id"), req.Message)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: sendMessageReply{done("Message sent successfully"), msg}}, nil
}

func (s *Server) getMessages(r *http.Request, user *models.User) (*reply, error) {
	conv, err := s.Store.GetConversation(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: conversationReply{
		envelope:       done("Messages retrieved successfully"),
		ConversationID: conv.ID,
		Messages:       conv.Messages,
	}}, nil
}
