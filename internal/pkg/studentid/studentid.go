// Package studentid issues human-readable student numbers.
//
// An ID is the enrollment date (YYMMDD), a two-digit sequence that restarts
// every day, and the two-digit hour of registration: 25031401 09 is the first
// student registered on 14 March 2025 at 09:xx. When the database cannot be
// reached an offline ID of the form YYMMDD-NNNN is issued instead so the
// registration can be queued and replayed later.
package studentid

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const (
	prefixLayout = "060102"
	prefixLen    = len(prefixLayout)
	idLen        = prefixLen + 4
	maxSequence  = 99
)

var (
	// ErrSequenceExhausted is returned once 99 IDs were issued for the day
	ErrSequenceExhausted = errors.New("daily student ID sequence exhausted")
	// ErrMalformedID is returned when the stored last ID cannot be parsed
	ErrMalformedID = errors.New("malformed student ID")
)

// Source looks up the highest student ID issued with a given date prefix.
// It returns "" when no ID has been issued yet.
type Source interface {
	LastWithPrefix(ctx context.Context, prefix string) (string, error)
}

// Generator issues student IDs from a Source
type Generator struct {
	source        Source
	isUnavailable func(error) bool
	randDigits    func(n int) (string, error)
}

// NewGenerator creates a generator. isUnavailable decides which Source errors
// mean the database is down and an offline ID should be issued.
func NewGenerator(source Source, isUnavailable func(error) bool) *Generator {
	if isUnavailable == nil {
		isUnavailable = func(error) bool { return false }
	}
	return &Generator{
		source:        source,
		isUnavailable: isUnavailable,
		randDigits:    randomDigits,
	}
}

// Generate returns the next student ID for now. offline is true when the
// returned ID is a placeholder issued without the database.
func (g *Generator) Generate(ctx context.Context, now time.Time) (id string, offline bool, err error) {
	prefix := Prefix(now)

	last, err := g.source.LastWithPrefix(ctx, prefix)
	if err != nil {
		if g.isUnavailable(err) {
			id, err = g.Offline(now)
			return id, true, err
		}
		return "", false, fmt.Errorf("failed to look up last student ID: %w", err)
	}

	seq, err := NextSequence(last)
	if err != nil {
		return "", false, err
	}

	return Format(prefix, seq, now.Hour()), false, nil
}

// Offline builds a randomized offline ID for now
func (g *Generator) Offline(now time.Time) (string, error) {
	digits, err := g.randDigits(4)
	if err != nil {
		return "", fmt.Errorf("failed to generate offline student ID: %w", err)
	}
	return Prefix(now) + "-" + digits, nil
}

// Prefix is the date part of an ID
func Prefix(now time.Time) string {
	return now.Format(prefixLayout)
}

// Format assembles an ID from its parts
func Format(prefix string, seq, hour int) string {
	return fmt.Sprintf("%s%02d%02d", prefix, seq, hour)
}

// NextSequence returns the sequence that follows last. An empty last starts at 1.
func NextSequence(last string) (int, error) {
	if last == "" {
		return 1, nil
	}
	if len(last) != idLen {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, last)
	}
	seq, err := strconv.Atoi(last[prefixLen : prefixLen+2])
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, last)
	}
	if seq+1 > maxSequence {
		return 0, ErrSequenceExhausted
	}
	return seq + 1, nil
}

// IsOffline reports whether id was issued without the database
func IsOffline(id string) bool {
	return len(id) == prefixLen+5 && id[prefixLen] == '-'
}

func randomDigits(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
