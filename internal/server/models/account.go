package models

import "time"

// Account is the public view of a registered user. It never carries the
// stored credential.
type Account struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"fullname"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the claims subset carried in tokens.
func (a *Account) Identity() AuthenticatedIdentity {
	return AuthenticatedIdentity{ID: a.ID, FullName: a.FullName, Email: a.Email}
}

// StoredAccount is an Account row as persisted, including the password hash.
// It stays inside the repositories and the account service.
type StoredAccount struct {
	Account
	PasswordHash string `json:"-"`
}

type CreateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthenticatedIdentity is the identity a verified token vouches for.
type AuthenticatedIdentity struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}
