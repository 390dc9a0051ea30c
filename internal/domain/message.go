package domain

// MessageAuthor is the author snapshot captured when a message is created.
// It is a copy, not a live reference; renaming a user does not rewrite
// history, and the id never changes even when the text is edited.
type MessageAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a single chat history entry. Only Text and Edited may change
// after creation, and only through the sanctioned edit path.
type Message struct {
	ID                string         `json:"id"`
	Author            *MessageAuthor `json:"author,omitempty"`
	Text              string         `json:"text"`
	CreatedAtUnixTime int64          `json:"createdAtUnixTime"`
	Edited            bool           `json:"edited"`
}
