package users

import "time"

// Role distinguishes the two parties driving the hiring pipeline.
type Role string

const (
	RoleEmployer Role = "employer"
	RoleEmployee Role = "employee"
)

// ParseRole converts a raw string to a Role, returning false for unknown values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleEmployer:
		return RoleEmployer, true
	case RoleEmployee:
		return RoleEmployee, true
	}
	return "", false
}

// User is a platform identity: an overseas employer or a domestic worker.
type User struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
