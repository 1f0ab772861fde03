package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
	Permissions  []string
	CreatedAt    time.Time
}

// Principal derives the authorization view of the user that token issuance
// operates on.
func (u User) Principal() Principal {
	return Principal{
		Subject:     u.Username,
		Roles:       append([]string(nil), u.Roles...),
		Permissions: append([]string(nil), u.Permissions...),
	}
}
