package models

// User represents a registered account.
//
// Users are created at signup and never modified or deleted afterwards.
// The username is the unique identifier; there is no separate surrogate key.
type User struct {
	// Username is the unique login name.
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
