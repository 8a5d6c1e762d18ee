package models

import "time"

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Bio            string    `json:"bio"`
	Gender         string    `json:"gender"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile is a user together with the ids of everything hanging off it.
type Profile struct {
	User
	Followers []string `json:"followers"`
	Following []string `json:"following"`
	Posts     []string `json:"posts"`
	Bookmarks []string `json:"bookmarks"`
}

// ProfileUpdate holds the editable profile fields. Empty fields are left as they are.
type ProfileUpdate struct {
	Bio            string
	Gender         string
	ProfilePicture string
}

// Author is the public slice of a user embedded in posts and comments.
type Author struct {
	ID             string `json:"_id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

type Post struct {
	ID        string    `json:"_id"`
	Caption   string    `json:"caption"`
	Image     string    `json:"image"`
	Author    Author    `json:"author"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Author    Author    `json:"author"`
	PostID    string    `json:"post"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the single thread between an unordered pair of users.
// Participants are kept in canonical (sorted) order.
type Conversation struct {
	ID           string    `json:"_id"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Message struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

type FollowState string

const (
	Followed   FollowState = "followed"
	Unfollowed FollowState = "unfollowed"
)

type BookmarkState string

const (
	Saved   BookmarkState = "saved"
	Unsaved BookmarkState = "unsaved"
)
