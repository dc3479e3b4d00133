package chat

import "time"

// SessionInfo is a read-only summary of a user's conversation.
type SessionInfo struct {
	UserID       string    `json:"userId"`
	Turns        int       `json:"turns"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}
