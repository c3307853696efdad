package domain

import "time"

// TokenPair is what login and refresh return: a short-lived signed access
// token and the opaque refresh token that can be exchanged for the next pair.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access-token lifetime in seconds
}

// RefreshToken models the stored refresh-token record. The opaque token
// value itself is never stored; TokenHash holds its SHA-256 fingerprint.
//
// Tokens form rotation chains: the record created at login is the chain
// root, and each rotation revokes the presented record and links it to its
// successor. ChainID is shared by every link so the whole chain can be
// revoked in one statement when replay of a dead token signals theft.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ChainID    string
	Replaces   *string // ID of the token this one superseded (nil for chain roots)
	ReplacedBy *string // ID of the successor, set exactly once on rotation
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Live reports whether the token could still be exchanged at the given time.
func (t RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
