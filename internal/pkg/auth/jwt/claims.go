package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for CampusConnect.
// It includes standard claims required by the JWT specification and custom claims
// necessary for identifying and authorizing users within the portal.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the stable identifier of the account (UUID string).
	ID string `json:"id"`

	// Name is the display name carried into chat handshakes and UI headers.
	Name string `json:"name"`

	// Role defines the participant's role. Absence of the admin and teacher flags
	// means the account is treated as a student.
	Role string `json:"role"`
}

// Role values carried in the Role claim.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)
