package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters for the current scheme.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

// Hash scheme versions. Stored alongside the digest so credentials hashed
// under superseded schemes can be verified and transparently upgraded.
const (
	// SchemeBcrypt is the legacy scheme carried over from earlier deployments.
	// Verifiable but always flagged for upgrade.
	SchemeBcrypt = 1

	// SchemeArgon2id is the current scheme: peppered Argon2id in PHC format.
	SchemeArgon2id = 2

	// CurrentScheme is what HashPassword produces.
	CurrentScheme = SchemeArgon2id
)

var ErrUnknownScheme = errors.New("cryptox: unknown hash scheme")

// HashPassword hashes a plaintext password under the current scheme and
// returns the PHC-format digest together with its scheme version.
func HashPassword(password string) (string, int, error) {
	salt, err := randomBytes(saltLength)
	if err != nil {
		return "", 0, err
	}

	hash := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)

	digest := fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return digest, CurrentScheme, nil
}

// VerifyPassword checks a plaintext password against a stored digest of the
// given scheme version. It reports whether the password matches and whether
// the stored digest should be re-hashed under the current scheme. Digest
// comparison is constant time; a mismatch is not an error, a malformed
// digest is.
func VerifyPassword(password, digest string, version int) (match, needsUpgrade bool, err error) {
	switch version {
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, false, nil
		}
		if err != nil {
			return false, false, fmt.Errorf("cryptox: bcrypt verify: %w", err)
		}
		// Legacy scheme always upgrades on successful verification.
		return true, true, nil

	case SchemeArgon2id:
		params, salt, expected, err := parsePHC(digest)
		if err != nil {
			return false, false, err
		}

		computed := argon2.IDKey(
			[]byte(password+GetPepper()),
			salt,
			params.iterations,
			params.memory,
			params.parallelism,
			uint32(len(expected)), // #nosec G115 - digest length is bounded by parsePHC
		)
		if subtle.ConstantTimeCompare(computed, expected) != 1 {
			return false, false, nil
		}

		upgrade := params.memory != memory ||
			params.iterations != iterations ||
			params.parallelism != parallelism
		return true, upgrade, nil

	default:
		return false, false, fmt.Errorf("%w: %d", ErrUnknownScheme, version)
	}
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// parsePHC splits a $argon2id$v=19$m=X,t=Y,p=Z$salt$hash digest.
func parsePHC(digest string) (argon2Params, []byte, []byte, error) {
	parts := make([]string, 0, 6)
	start := 0
	for i := 0; i < len(digest); i++ {
		if digest[i] == '$' {
			parts = append(parts, digest[start:i])
			start = i + 1
		}
	}
	parts = append(parts, digest[start:])

	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return argon2Params{}, nil, nil, errors.New("cryptox: malformed argon2id digest")
	}

	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("cryptox: bad argon2id parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("cryptox: bad salt encoding: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("cryptox: bad hash encoding: %w", err)
	}

	return p, salt, hash, nil
}

// HashPasswordBcrypt produces a legacy bcrypt digest. Only used by tests and
// data migrations exercising the upgrade path; new credentials always go
// through HashPassword.
func HashPasswordBcrypt(password string) (string, int, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", 0, err
	}
	return string(digest), SchemeBcrypt, nil
}
