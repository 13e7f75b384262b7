package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthUser is the public view of a User.
type AuthUser struct {
	ID       int64  `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, UserID: u.UserID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Principal is the identity asserted by a validated access token. It lives
// in the request context only.
type Principal struct {
	UserIdx     int64    `json:"user_idx"`
	UserID      string   `json:"user_id"`
	UserName    string   `json:"user_name"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
	IP          string   `json:"ip"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type RefreshTokenRecord struct {
	UserIdx   int64     `json:"user_idx"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the record is no longer usable at now.
func (r RefreshTokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
