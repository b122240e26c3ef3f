// Package models defines the identity domain records backing token issuance.
package models

import "time"

// User is a principal in the master directory.
type User struct {
	ID           int64
	UserName     string
	FirstName    string
	LastName     string
	PasswordHash string
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

// FullName returns the display name embedded in issued tokens.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Role is a named role grant. System marks platform-level roles; the derived
// is_system_role claim is true iff the principal holds at least one of these.
type Role struct {
	ID     int64
	Name   string
	System bool
}

// CompanyMembership links a user to a company they may act in.
// Default marks the company a token targets when the client does not choose one.
type CompanyMembership struct {
	CompanyID   int64
	CompanyName string
	Default     bool
	Active      bool
}
