// Package message builds chat message records. The author is snapshotted at
// creation; a nil author marks a system notice.
package message

import (
	"time"

	"github.com/banterhq/banter/internal/domain"
	"github.com/google/uuid"
)

// New builds a message record from an optional author and text.
func New(author *domain.MessageAuthor, text string) domain.Message {
	msg := domain.Message{
		ID:                uuid.NewString(),
		Text:              text,
		CreatedAtUnixTime: time.Now().Unix(),
	}
	if author != nil {
		snapshot := *author
		msg.Author = &snapshot
	}
	return msg
}

// NewFromUser builds a message authored by the given user.
func NewFromUser(user *domain.User, text string) domain.Message {
	return New(&domain.MessageAuthor{ID: user.ID, Name: user.Name}, text)
}
