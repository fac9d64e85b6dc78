package model

import "time"

// PostEvent is the payload of post.* events.
type PostEvent struct {
	PostID    string    `json:"postId"`
	Title     string    `json:"title,omitempty"`
	Published bool      `json:"published"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPostEvent describes a change to p made by userID at t.
func NewPostEvent(p *Post, userID string, t time.Time) PostEvent {
	return PostEvent{PostID: p.ID, Title: p.Title, Published: p.Published, UserID: userID, Timestamp: t}
}
