// Package models defines the data structures shared by the login client
// and the reference authentication server.
package models

import "time"

// AccessTokenKey is the fixed key the access token is persisted under.
const AccessTokenKey = "accessToken"

// Credentials holds the values submitted from the login form.
type Credentials struct {
	// Email is the login identifier.
	Email string `json:"email"`
	// Password is the plain password, never persisted by the client.
	Password string `json:"password"`
}

// LoginContent is the payload of a successful login response.
type LoginContent struct {
	// AccessToken is the opaque token issued by the server.
	AccessToken string `json:"accessToken"`
}

// LoginResponse is the envelope returned by the authentication endpoint.
// StatusCode mirrors the outcome: 200 means the token in Content is valid.
type LoginResponse struct {
	StatusCode int          `json:"statusCode"`
	Message    string       `json:"message,omitempty"`
	Content    LoginContent `json:"content"`
}

// Profile is what the server reports about the owner of an access token.
type Profile struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// User represents an account known to the authentication server.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Email is the login name chosen by the user.
	Email string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
}

// Session records an issued access token on the server side.
type Session struct {
	// ID is the token identifier (the "jti" claim).
	ID string
	// UserID references the owner of the session.
	UserID string
	// CreatedAt is the issue time.
	CreatedAt time.Time
}
