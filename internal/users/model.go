package users

import "time"

// User represents a customer account.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the minimal projection returned on login.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterResponse is returned by POST /api/register.
type RegisterResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
	Token   string   `json:"token"`
}
