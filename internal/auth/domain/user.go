package domain

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	PasswordHash string // PHC-encoded digest
	HashVersion  int    // cryptox scheme version the digest was produced under
	Role         Role
	Verified     bool // email verified
	Active       bool // false once deactivated
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
