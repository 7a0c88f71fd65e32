// Package tokenminter materializes one single-use evaluation Token per
// (evaluator, target) pair produced by the assigner. Token strings are
// drawn from crypto/rand rather than the UUID path the reference
// implementation also carried: the specification's open question picks
// one source of randomness, and a CSPRNG with URL-safe base64 gives a
// configurable length while keeping at least 128 bits of entropy.
package tokenminter

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

// Options configures a single minting session. Questions is identical
// for every token minted in the session.
type Options struct {
	Questions   []string
	TTLDays     int
	TokenLength int // byte length fed to the CSPRNG, not the encoded string length
}

// Minter mints Tokens from an AssignmentSet. It carries no mutable
// state; Now is overridable for deterministic tests.
type Minter struct {
	Now func() time.Time
}

// New returns a Minter using the real wall clock.
func New() *Minter {
	return &Minter{Now: time.Now}
}

// Mint produces exactly one Token per pair in pairs. Collisions within
// the generated batch are a hard failure.
func (m *Minter) Mint(pairs []models.AssignmentPair, opts Options) ([]models.Token, error) {
	if opts.TokenLength < 16 {
		return nil, apperr.New(apperr.KindInvalidConfiguration, "token length must be >= 16 bytes")
	}
	if opts.TTLDays <= 0 {
		return nil, apperr.New(apperr.KindInvalidConfiguration, "ttl_days must be positive")
	}

	now := m.Now()
	expiresAt := now.Add(time.Duration(opts.TTLDays) * 24 * time.Hour)

	seen := make(map[string]struct{}, len(pairs))
	tokens := make([]models.Token, 0, len(pairs))
	for _, p := range pairs {
		tokenStr, err := generateTokenString(opts.TokenLength)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "generating token", err)
		}
		if _, dup := seen[tokenStr]; dup {
			return nil, apperr.New(apperr.KindCollisionDetected, "duplicate token generated in minting batch")
		}
		seen[tokenStr] = struct{}{}

		questions := make([]string, len(opts.Questions))
		copy(questions, opts.Questions)

		tokens = append(tokens, models.Token{
			Token:       tokenStr,
			EvaluatorID: p.EvaluatorID,
			TargetID:    p.TargetID,
			Questions:   questions,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
			Status:      models.TokenPending,
			IsUsed:      false,
		})
	}
	return tokens, nil
}

// generateTokenString draws nBytes of cryptographically strong
// randomness and encodes them URL-safe, unpadded.
func generateTokenString(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
