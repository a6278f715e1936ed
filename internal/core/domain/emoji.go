package domain

import "net/url"

// Emoji is a guild emoji as returned by the emoji list endpoint.
type Emoji struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated,omitempty"`
}

// EmojiRef is a resolved reaction emoji. Either field may be empty.
type EmojiRef struct {
	Name string
	ID   string
}

// Segment builds the path segment the reactions endpoints expect:
// "name:id" when both are known, otherwise whichever is known.
func (e EmojiRef) Segment() string {
	var s string
	switch {
	case e.Name != "" && e.ID != "":
		s = e.Name + ":" + e.ID
	case e.Name != "":
		s = e.Name
	default:
		s = e.ID
	}
	return url.PathEscape(s)
}
