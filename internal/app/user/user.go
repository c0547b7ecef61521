/*
Package user contains core data structures related to portal identity and roles.

It defines the basic representation of an account within CampusConnect (the User
struct), used for passing identity information both internally and to clients.
*/
package user

// Role values stored on an account. An account carrying neither the admin nor
// the teacher role is treated as a student.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User represents the basic identity information of a portal participant.
// Fields use JSON tags for serialization in WebSocket messages and API payloads.
type User struct {

	// ID is the unique identifier for the account (UUID string).
	ID string `json:"id"`

	// Name is the display name shown in chat threads and directory listings.
	Name string `json:"name"`

	// Role is one of RoleAdmin, RoleTeacher or RoleStudent.
	Role string `json:"role"`

	// Avatar is the URL for the account's profile photo, if any.
	Avatar string `json:"avatar,omitempty"`
}

// IsTeacher reports whether the account carries the teacher role.
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }

// IsAdmin reports whether the account carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
