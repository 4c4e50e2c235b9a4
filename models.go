package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is the default role assigned on registration
	RoleUser UserRole = "user"
	// RoleAdmin can manage other accounts
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}

	level, ok := roleHierarchy[r]
	if !ok {
		return false
	}

	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return level >= minLevel
}

// User is the user model. The password hash never leaves the process:
// it is excluded from every JSON projection.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	UID           uuid.UUID `bun:"uid,pk,nullzero,type:uuid" json:"uid"`
	FirstName     string    `bun:"first_name,notnull" json:"first_name"`
	MiddleName    string    `bun:"middle_name" json:"middle_name,omitempty"`
	LastName      string    `bun:"last_name,notnull" json:"last_name"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	IsVerified    bool      `bun:"is_verified,notnull,default:false" json:"is_verified"`
	Role          UserRole  `bun:"role,notnull,default:'user'" json:"role"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// FullName joins the name fields, skipping an empty middle name.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// UserPatch enumerates the updatable user fields. Nil fields are left
// untouched; the repository applies the patch as a single mutation.
type UserPatch struct {
	FirstName    *string
	MiddleName   *string
	LastName     *string
	PasswordHash *string
	IsVerified   *bool
	Role         *UserRole
}

// IsZero reports whether the patch would change nothing.
func (p UserPatch) IsZero() bool {
	return p.FirstName == nil &&
		p.MiddleName == nil &&
		p.LastName == nil &&
		p.PasswordHash == nil &&
		p.IsVerified == nil &&
		p.Role == nil
}

func prepareUserDefaults(user *User) {
	if user.UID == uuid.Nil {
		user.UID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
}
