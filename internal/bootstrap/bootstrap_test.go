package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhenDatabaseUpRunsSetupOnceReachable(t *testing.T) {
	pings, setups := 0, 0
	ping := func(context.Context) error {
		pings++
		if pings < 3 {
			return errors.New("connection refused")
		}
		return nil
	}
	onUp := func(context.Context) error {
		setups++
		if setups == 1 {
			return errors.New("migration lock held")
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := WhenDatabaseUp(ctx, time.Millisecond, ping, onUp, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, pings)
	assert.Equal(t, 2, setups)
}

func TestWhenDatabaseUpStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	setups := 0
	ping := func(context.Context) error {
		cancel()
		return errors.New("connection refused")
	}
	onUp := func(context.Context) error { setups++; return nil }

	err := WhenDatabaseUp(ctx, time.Millisecond, ping, onUp, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, setups)
}
