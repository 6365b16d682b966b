package auth

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/baechuer/notes-service/internal/domain"
)

const (
	DefaultPasscodeTTL = 10 * time.Minute

	passcodeMin = 100000
	passcodeMax = 999999
)

// PasscodeIssuer generates numeric one-time passcodes and their expiry.
type PasscodeIssuer interface {
	Generate() (string, error)
	ExpiryFrom(now time.Time) time.Time
}

// RandomPasscodes draws 6-digit codes uniformly from [100000, 999999]
// using a CSPRNG.
type RandomPasscodes struct {
	ttl    time.Duration
	random io.Reader
}

func NewPasscodeIssuer(ttl time.Duration) *RandomPasscodes {
	if ttl <= 0 {
		ttl = DefaultPasscodeTTL
	}
	return &RandomPasscodes{ttl: ttl, random: rand.Reader}
}

func (p *RandomPasscodes) Generate() (string, error) {
	n, err := rand.Int(p.random, big.NewInt(passcodeMax-passcodeMin+1))
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return strconv.FormatInt(n.Int64()+passcodeMin, 10), nil
}

func (p *RandomPasscodes) ExpiryFrom(now time.Time) time.Time {
	return now.Add(p.ttl)
}

func (p *RandomPasscodes) TTL() time.Duration { return p.ttl }
