package domain

import (
	"slices"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance. A single instance
// caches struct metadata across calls.
var validatorInstance = validator.New()

// Room is the persisted room entity. Membership fields are mutated only
// through the membership manager; chat history only through the room service.
type Room struct {
	ID                  string    `json:"id,omitempty"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Author              string    `json:"author"`
	UsersInRoom         []string  `json:"usersInRoom"`
	BannedUsersFromRoom []string  `json:"bannedUsersFromRoom"`
	ChatHistory         []Message `json:"chatHistory"`
}

// HasMember reports whether userID is currently in the room.
func (r *Room) HasMember(userID string) bool {
	return slices.Contains(r.UsersInRoom, userID)
}

// IsBanned reports whether userID is on the room's ban list.
func (r *Room) IsBanned(userID string) bool {
	return slices.Contains(r.BannedUsersFromRoom, userID)
}

// RoomDraft carries the client-supplied fields for creating or editing a room.
type RoomDraft struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required,min=10"`
}

// Validate checks the draft against its field constraints and maps a
// validation failure to the missing-data domain error.
func (d *RoomDraft) Validate() error {
	if err := validatorInstance.Struct(d); err != nil {
		field := ""
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			switch errs[0].Field() {
			case "Name":
				field = "name"
			case "Description":
				field = "description"
			}
		}
		return NewError(ErrValidationMissingData, "room name and a description of at least 10 characters are required").
			WithField(field).WithCause(err)
	}
	return nil
}

// RoomSnapshot is the client-facing view of a room: membership is expanded to
// user summaries so clients never see passwords or token lists.
type RoomSnapshot struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Author              string        `json:"author"`
	UsersInRoom         []UserSummary `json:"usersInRoom"`
	BannedUsersFromRoom []string      `json:"bannedUsersFromRoom"`
	ChatHistory         []Message     `json:"chatHistory"`
}
