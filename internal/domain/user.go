package domain

// SessionToken is one persisted token record on a user. The persisted list is
// authoritative for token validity; the ephemeral connection binding is not.
type SessionToken struct {
	Token        string `json:"token"`
	IssuedAtUnix int64  `json:"issuedAtUnixTime"`
}

// User is the core account model. Password and SessionTokens stay inside the
// store and service layers; anything sent to clients goes through Summary.
type User struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Password      string         `json:"-"`
	SessionTokens []SessionToken `json:"-"`
	SocketID      string         `json:"socketId,omitempty"`
}

// UserSummary is the projection of a user embedded in room snapshots.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the client-safe projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// HasSessionToken reports whether token is among the user's stored valid
// session tokens.
func (u *User) HasSessionToken(token string) bool {
	for _, t := range u.SessionTokens {
		if t.Token == token {
			return true
		}
	}
	return false
}
