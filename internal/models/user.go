package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	MobileNo     string    `bson:"mobile_no,omitempty" json:"mobileNo"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         Role      `bson:"role" json:"role"`
	IsBlocked    bool      `bson:"is_blocked" json:"isBlocked"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserUpdate holds the admin-editable fields; nil means unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	MobileNo *string
}
