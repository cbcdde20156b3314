// Package otp mints and verifies the short numeric codes that gate the
// arrival and completion checkpoints of a job.
//
// Codes are minted once at job creation and never regenerated. They are
// relayed out-of-band (spoken in person between customer and worker) as a
// physical-presence proof, so generation uses a cryptographically secure
// random source and verification is a constant-time compare.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"github.com/pkg/errors"
)

// codeSpace is [1000, 9999]: four digits, no leading zero.
const (
	codeMin   = 1000
	codeRange = 9000
)

// GenerateCode returns a new 4-digit checkpoint code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", errors.Wrap(err, "generate checkpoint code")
	}
	return big.NewInt(codeMin + n.Int64()).String(), nil
}

// Match reports whether the submitted code equals the stored one. The
// comparison is constant time and an empty stored code never matches.
func Match(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
