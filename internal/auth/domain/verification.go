package domain

import "time"

// VerificationPurpose discriminates the single-use out-of-band token flows
// that share the verifications table.
type VerificationPurpose string

const (
	PurposeVerifyEmail   VerificationPurpose = "verify_email"
	PurposePasswordReset VerificationPurpose = "password_reset"
	PurposeEmailChange   VerificationPurpose = "email_change"
)

// Verification is a pending single-use token: issued by the service,
// delivered out of band, consumed exactly once, then dead. The opaque token
// is stored only as a fingerprint.
type Verification struct {
	ID        string
	TokenHash string
	UserID    string
	Purpose   VerificationPurpose
	NewEmail  *string // populated only for PurposeEmailChange
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// AttemptWindow is a fixed-window brute-force counter keyed by
// (identity, action). The window is shared across service instances
// through the store, so increments must be atomic there.
type AttemptWindow struct {
	Identity    string
	Action      string
	Count       int
	WindowStart time.Time
}
