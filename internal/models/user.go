package models

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Caller is the authenticated identity taken from the Supabase access token.
type Caller struct {
	ID   string   `json:"id"` // uuid ("sub")
	Role UserRole `json:"role"`
}
