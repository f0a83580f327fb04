package models

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the identity carried by a verified Supabase access token.
type User struct {
	ID    string   `json:"id"` // uuid, the token "sub"
	Email string   `json:"email,omitempty"`
	Role  UserRole `json:"role"`
}
