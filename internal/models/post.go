package models

import "time"

// Post is a published article. AuthorID is set at creation and never
// reassigned; only the author may mutate the remaining fields.
type Post struct {
	ID         string
	Title      string
	Summary    string
	Content    string
	CoverImage string // storage key of the cover asset, empty if none
	AuthorID   string
	AuthorName string // joined from users on reads
	CreatedAt  time.Time
}

// PostPatch carries the mutable fields of an update. An empty CoverImage
// preserves the existing asset reference.
type PostPatch struct {
	Title      string
	Summary    string
	Content    string
	CoverImage string
}
