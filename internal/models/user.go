package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of roles an authenticated actor can hold.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleRegistrar  Role = "registrar"
	RoleDean       Role = "dean"
	RoleAdmin      Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleInstructor, RoleRegistrar, RoleDean, RoleAdmin}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleStudent, RoleInstructor, RoleRegistrar, RoleDean, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// IsStaff reports whether the role belongs to the staff account table.
func (r Role) IsStaff() bool {
	switch r {
	case RoleInstructor, RoleRegistrar, RoleDean, RoleAdmin:
		return true
	case RoleStudent:
		return false
	default:
		return false
	}
}

// Actor is whoever performs an operation: a staff member or a student.
type Actor interface {
	ID() int64
	Role() Role
	DisplayName() string
	// Key is a stable identifier used in audit records, e.g. "staff:12".
	Key() string
	isActor()
}

type StaffActor struct {
	UserID    int64
	StaffRole Role
	Name      string
}

func (s StaffActor) ID() int64           { return s.UserID }
func (s StaffActor) Role() Role          { return s.StaffRole }
func (s StaffActor) DisplayName() string { return s.Name }
func (s StaffActor) Key() string         { return fmt.Sprintf("staff:%d", s.UserID) }
func (StaffActor) isActor()              {}

type StudentActor struct {
	StudentID int64
	Name      string
}

func (s StudentActor) ID() int64           { return s.StudentID }
func (StudentActor) Role() Role            { return RoleStudent }
func (s StudentActor) DisplayName() string { return s.Name }
func (s StudentActor) Key() string         { return fmt.Sprintf("student:%d", s.StudentID) }
func (StudentActor) isActor()              {}

// User is a staff account.
type User struct {
	ID         int64  `db:"id"`
	Username   string `db:"username"`
	FullName   string `db:"full_name"`
	Role       Role   `db:"role"`
	Department string `db:"department"`
	IsActive   bool   `db:"is_active"`
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID         int64     `db:"id"`
	EventID    string    `db:"event_id"`
	Action     string    `db:"action"`
	Actor      string    `db:"actor"`
	Resource   string    `db:"resource"`
	ResourceID int64     `db:"resource_id"`
	Summary    string    `db:"summary"`
	Details    []byte    `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
}
