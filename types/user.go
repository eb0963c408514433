package types

import "time"

// Roles a user can hold.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ProviderCredentials is the provider discriminator for password-based
// accounts. Federated providers would use their own discriminators.
const ProviderCredentials = "credentials"

// User represents an identity in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address, stored case-normalized and
	// unique across all users.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the system
	// (e.g., "admin", "user").
	Role string `json:"role" db:"role"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Account is an authentication factor bound to a user. For the
// credentials provider it holds the password hash; the plaintext is
// never stored. At most one account per (user, provider) pair exists.
type Account struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Provider     string    `json:"provider" db:"provider"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is an auxiliary per-user record created alongside the user.
// It exists for future profile fields; nothing depends on it yet.
type Profile struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Credentials is the projection used during signin: the user joined to
// their credentials-provider account.
type Credentials struct {
	UserID       int
	Name         string
	PasswordHash string
}
