package user

import "time"

// Role is one of the four fixed roles gating access to the API.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDataTeam Role = "data_team"
	RoleArtTeam  Role = "art_team"
	RoleUser     Role = "user"
)

// ParseRole validates a raw role value coming from a request body.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleDataTeam, RoleArtTeam, RoleUser:
		return Role(raw), true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewUser carries the fields needed to insert a user row. ExternalID is
// the identity provider's stable subject id and is immutable after creation.
type NewUser struct {
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
	Role       Role
}
