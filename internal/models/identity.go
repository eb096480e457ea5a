package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller of a core operation.
type Identity struct {
	UserID primitive.ObjectID `json:"userId"`
	Role   Role               `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanActFor reports whether the caller may read or write data owned by userID.
func (i Identity) CanActFor(userID primitive.ObjectID) bool {
	if i.IsAdmin() {
		return true
	}
	return !i.UserID.IsZero() && i.UserID == userID
}
