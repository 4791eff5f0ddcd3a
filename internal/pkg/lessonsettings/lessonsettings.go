// Package lessonsettings manages the list of bookable lesson durations and
// the buffer time a teacher gets after each of them.
package lessonsettings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// MaxBufferMinutes caps the break configured after a lesson
const MaxBufferMinutes = 240

var (
	ErrMalformedSettings = errors.New("stored lesson duration settings are malformed")
	ErrInvalidDuration   = errors.New("duration must be a positive number of minutes")
	ErrInvalidBuffer     = errors.New("buffer minutes must be between 0 and 240")
)

// DurationBuffer is one bookable lesson length and its trailing buffer
type DurationBuffer struct {
	Duration      int `json:"duration" binding:"required,gt=0" example:"60"`
	BufferMinutes int `json:"bufferMinutes" binding:"gte=0,lte=240" example:"10"`
}

// Validate checks one entry
func (d DurationBuffer) Validate() error {
	if d.Duration <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, d.Duration)
	}
	if d.BufferMinutes < 0 || d.BufferMinutes > MaxBufferMinutes {
		return fmt.Errorf("%w: %d", ErrInvalidBuffer, d.BufferMinutes)
	}
	return nil
}

// Parse decodes a stored settings blob. Empty input and JSON null yield an
// empty list.
func Parse(raw []byte) ([]DurationBuffer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []DurationBuffer{}, nil
	}
	var list []DurationBuffer
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSettings, err)
	}
	if list == nil {
		list = []DurationBuffer{}
	}
	return list, nil
}

// Merge upserts updates into the existing blob by duration and returns the
// re-serialized list sorted by duration. Later updates for the same duration win.
func Merge(existing []byte, updates []DurationBuffer) ([]byte, error) {
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}

	current, err := Parse(existing)
	if err != nil {
		return nil, err
	}

	byDuration := make(map[int]int, len(current)+len(updates))
	for _, d := range current {
		byDuration[d.Duration] = d.BufferMinutes
	}
	for _, u := range updates {
		byDuration[u.Duration] = u.BufferMinutes
	}

	return json.Marshal(sorted(byDuration))
}

// Remove drops duration from the blob. found is false when it was not configured.
func Remove(existing []byte, duration int) (out []byte, found bool, err error) {
	current, err := Parse(existing)
	if err != nil {
		return nil, false, err
	}

	byDuration := make(map[int]int, len(current))
	for _, d := range current {
		byDuration[d.Duration] = d.BufferMinutes
	}
	if _, found = byDuration[duration]; found {
		delete(byDuration, duration)
	}

	out, err = json.Marshal(sorted(byDuration))
	return out, found, err
}

// BufferFor returns the buffer configured for duration, or 0
func BufferFor(durations []DurationBuffer, duration int) int {
	for _, d := range durations {
		if d.Duration == duration {
			return d.BufferMinutes
		}
	}
	return 0
}

// IsAllowed reports whether duration may be booked. Any duration is allowed
// while nothing is configured.
func IsAllowed(durations []DurationBuffer, duration int) bool {
	if len(durations) == 0 {
		return duration > 0
	}
	for _, d := range durations {
		if d.Duration == duration {
			return true
		}
	}
	return false
}

// Defaults are seeded on first start
func Defaults() []DurationBuffer {
	return []DurationBuffer{
		{Duration: 30, BufferMinutes: 5},
		{Duration: 45, BufferMinutes: 10},
		{Duration: 60, BufferMinutes: 10},
	}
}

func sorted(byDuration map[int]int) []DurationBuffer {
	list := make([]DurationBuffer, 0, len(byDuration))
	for d, b := range byDuration {
		list = append(list, DurationBuffer{Duration: d, BufferMinutes: b})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Duration < list[j].Duration })
	return list
}
