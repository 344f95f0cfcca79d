package catalogue

import (
	"strings"
	"time"
)

// Role classifies a caller for the access policy gate.
//
// Note: the role used for authorization is self-asserted by the caller via
// the x-user-role request header, with no cryptographic binding to an
// authenticated identity. This mirrors the existing wire contract the
// browser client depends on; see the README before trusting it anywhere.
type Role string

const (
	RoleStudent   Role = "student"
	RoleLibrarian Role = "librarian"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleLibrarian
}

// ParseRole normalizes a caller-supplied role claim. Unknown or empty claims
// yield an invalid Role; callers must check IsValid.
func ParseRole(claim string) Role {
	return Role(strings.ToLower(strings.TrimSpace(claim)))
}

// User is a registered account. PasswordHash holds a bcrypt hash and is never
// serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Contact      *string   `json:"contact"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Registration carries the caller-supplied attributes for a new account.
type Registration struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Contact  *string `json:"contact"`
	Role     string  `json:"role"`
}

// Validate checks the required registration attributes.
func (reg Registration) Validate() error {
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return ErrMissingCredentials
	}

	return nil
}

// AccountRole resolves the requested role: only an explicit "librarian"
// request yields a librarian account, anything else defaults to student.
func (reg Registration) AccountRole() Role {
	if ParseRole(reg.Role) == RoleLibrarian {
		return RoleLibrarian
	}

	return RoleStudent
}
