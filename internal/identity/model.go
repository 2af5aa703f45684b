package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Principal is the authenticated caller as resolved from verified claims:
// who they are, what role they hold and whether the account is usable.
type Principal struct {
	ID       uuid.UUID
	Role     Role
	Approved bool
	Blocked  bool
}

// User is an account record. Username doubles as the contact address when
// it is an email, which is how notifications find their recipient.
type User struct {
	ID        uuid.UUID
	Username  string
	Role      Role
	Approved  bool
	Blocked   bool
	CreatedAt time.Time
}

func (u User) Principal() Principal {
	return Principal{
		ID:       u.ID,
		Role:     u.Role,
		Approved: u.Approved,
		Blocked:  u.Blocked,
	}
}

// Email returns the account contact address, if the username is one.
func (u User) Email() (string, bool) {
	if strings.Contains(u.Username, "@") {
		return u.Username, true
	}
	return "", false
}
