package domain

import "time"

type UserType string

const (
	UserTypeFarmer   UserType = "farmer"
	UserTypeConsumer UserType = "consumer"
)

// User is the identity record returned by GET /users/me/.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	UserType    UserType  `json:"user_type"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Location    string    `json:"location,omitempty"`
	IsVerified  bool      `json:"is_verified"`
	IsActive    bool      `json:"is_active"`
	DateJoined  time.Time `json:"date_joined"`
}

// RegisterRequest mirrors the backend's registration payload.
type RegisterRequest struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	PasswordConfirm string   `json:"password_confirm"`
	UserType        UserType `json:"user_type,omitempty"`
	PhoneNumber     string   `json:"phone_number,omitempty"`
	Location        string   `json:"location,omitempty"`
}
