package studentid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	last   string
	err    error
	prefix string
}

func (s *stubSource) LastWithPrefix(_ context.Context, prefix string) (string, error) {
	s.prefix = prefix
	return s.last, s.err
}

var errDown = errors.New("connection refused")

func isDown(err error) bool { return errors.Is(err, errDown) }

func TestGenerate(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 41, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    string
		want    string
		wantErr error
	}{
		{name: "first of the day", last: "", want: "2503140109"},
		{name: "increments sequence", last: "2503140417", want: "2503140509"},
		{name: "two digit sequence", last: "2503141208", want: "2503141309"},
		{name: "exhausted", last: "2503149923", wantErr: ErrSequenceExhausted},
		{name: "malformed sequence", last: "250314ab09", wantErr: ErrMalformedID},
		{name: "malformed length", last: "25031401", wantErr: ErrMalformedID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{last: tt.last}
			id, offline, err := NewGenerator(src, isDown).Generate(context.Background(), now)

			assert.Equal(t, "250314", src.prefix)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, offline)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestGenerateOffline(t *testing.T) {
	now := time.Date(2025, 3, 14, 23, 5, 0, 0, time.UTC)
	g := NewGenerator(&stubSource{err: errDown}, isDown)
	g.randDigits = func(int) (string, error) { return "0042", nil }

	id, offline, err := g.Generate(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, offline)
	assert.Equal(t, "250314-0042", id)
	assert.True(t, IsOffline(id))
}

func TestGenerateQueryError(t *testing.T) {
	g := NewGenerator(&stubSource{err: errors.New("syntax error")}, isDown)

	_, offline, err := g.Generate(context.Background(), time.Now())
	assert.Error(t, err)
	assert.False(t, offline)
}

func TestRandomDigits(t *testing.T) {
	for i := 0; i < 20; i++ {
		d, err := randomDigits(4)
		require.NoError(t, err)
		assert.Len(t, d, 4)
	}
}

func TestIsOffline(t *testing.T) {
	assert.True(t, IsOffline("250314-1234"))
	assert.False(t, IsOffline("2503140109"))
	assert.False(t, IsOffline(""))
}
