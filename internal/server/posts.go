package server

import (
	"net/http"

	"social/internal/models"
)

type commentRequest struct {
	Text string `json:"text"`
}

type postReply struct {
	envelope
	Post *models.Post `json:"post"`
}

type postsReply struct {
	envelope
	Posts []models.Post `json:"posts"`
}

type commentReply struct {
	envelope
	Comment *models.Comment `json:"comment"`
}

type commentsReply struct {
	envelope
	Comments []models.Comment `json:"comments"`
}

type bookmarkReply struct {
	envelope
	Type models.BookmarkState `json:"type"`
}

func (s *Server) addPost(r *http.Request, user *models.User) (*reply, error) {
	url, err := s.uploadImage(r, "image", "posts", true)
	if err != nil {
		return nil, err
	}
	post, err := s.Store.CreatePost(r.Context(), user.ID, r.FormValue("caption"), url)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusCreated, body: postReply{done("Post added successfully"), post}}, nil
}

func (s *Server) allPosts(r *http.Request, _ *models.User) (*reply, error) {
	posts, err := s.Store.ListPosts(r.Context())
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: postsReply{done("Posts retrieved successfully"), posts}}, nil
}

func (s *Server) userPosts(r *http.Request, user *models.User) (*reply, error) {
	posts, err := s.Store.ListPostsByAuthor(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: postsReply{done("User's posts retrieved successfully"), posts}}, nil
}

func (s *Server) likePost(r *http.Request, user *models.User) (*reply, error) {
	if err := s.Store.LikePost(r.Context(), r.PathValue("id"), user.ID); err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: done("Post liked successfully")}, nil
}

func (s *Server) dislikePost(r *http.Request, user *models.User) (*reply, error) {
	if err := s.Store.DislikePost(r.Context(), r.PathValue("id"), user.ID); err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: done("Post disliked successfully")}, nil
}

func (s *Server) addComment(r *http.Request, user *models.User) (*reply, error) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	comment, err := s.Store.AddComment(r.Context(), r.PathValue("id"), user.ID, req.Text)
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusCreated, body: commentReply{done("Comment added successfully"), comment}}, nil
}

func (s *Server) postComments(r *http.Request, _ *models.User) (*reply, error) {
	comments, err := s.Store.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: commentsReply{done("Comments retrieved successfully"), comments}}, nil
}

func (s *Server) deletePost(r *http.Request, user *models.User) (*reply, error) {
	if err := s.Store.DeletePost(r.Context(), r.PathValue("id"), user.ID); err != nil {
		return nil, err
	}
	return &reply{status: http.StatusOK, body: done("Post deleted successfully")}, nil
}

func (s *Server) bookmarkPost(r *http.Request, user *models.User) (*reply, error) {
	state, err := s.Store.ToggleBookmark(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		return nil, err
	}
	msg := "Post bookmarked successfully"
	if state == models.Unsaved {
		msg = "Post removed from the bookmarks"
	}
	return &reply{status: http.StatusOK, body: bookmarkReply{done(msg), state}}, nil
}
