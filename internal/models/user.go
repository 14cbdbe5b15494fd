package models

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the authenticated caller extracted from a session token.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}
