package auth

import (
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestRandomPasscodes_FormatAndRange(t *testing.T) {
	t.Parallel()

	p := NewPasscodeIssuer(0)
	for i := 0; i < 500; i++ {
		c, err := p.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !sixDigits.MatchString(c) {
			t.Fatalf("expected 6 digits, got %q", c)
		}
		n, _ := strconv.Atoi(c)
		if n < 100000 || n > 999999 {
			t.Fatalf("out of range: %d", n)
		}
	}
}

func TestRandomPasscodes_DefaultAndCustomTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := NewPasscodeIssuer(0).ExpiryFrom(now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected default 10m window, got %v", got)
	}
	if got := NewPasscodeIssuer(5 * time.Minute).TTL(); got != 5*time.Minute {
		t.Fatalf("expected 5m, got %v", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestRandomPasscodes_EntropyFailure(t *testing.T) {
	t.Parallel()

	p := &RandomPasscodes{ttl: time.Minute, random: failingReader{}}
	_, err := p.Generate()
	requireErrCode(t, err, "random_failed")
}
