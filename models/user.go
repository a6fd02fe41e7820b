package models

import "time"

type User struct {
	UserID       string    `json:"userid" bson:"userid"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         []string  `json:"role" bson:"role"`
	Name         string    `json:"name,omitempty" bson:"name,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Address      string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin    time.Time `json:"last_login" bson:"last_login"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	for _, r := range u.Role {
		if r == "admin" {
			return true
		}
	}
	return false
}
