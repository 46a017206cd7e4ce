package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sojourn/internal/alerts/publisher"
	"sojourn/internal/compliance/cache"
	"sojourn/internal/platform/config"
	tripstore "sojourn/internal/trips/store"
	"sojourn/internal/zone"
)

func TestBuildZones(t *testing.T) {
	t.Run("extra zones and policy", func(t *testing.T) {
		zones, err := buildZones(config.ZonesConfig{
			UnknownPolicy: "non_counting",
			ExtraCounting: "xk",
			ExtraExcluded: "GB",
		})
		require.NoError(t, err)
		assert.Equal(t, zone.PolicyNonCounting, zones.Policy())

		counts, err := zones.CountsTowardLimit("XK")
		require.NoError(t, err)
		assert.True(t, counts)

		counts, err = zones.CountsTowardLimit("ZZ")
		require.NoError(t, err)
		assert.False(t, counts)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := buildZones(config.ZonesConfig{UnknownPolicy: "maybe"})
		assert.Error(t, err)
	})
}

func TestDefaultsWithoutInfrastructure(t *testing.T) {
	cfg := config.Config{Cache: config.CacheConfig{StatusTTL: 1}}
	deps := &infra{}

	store, tx, err := buildTripStore(context.Background(), cfg, deps)
	require.NoError(t, err)
	assert.IsType(t, &tripstore.InMemory{}, store)
	assert.Nil(t, tx)

	assert.IsType(t, &cache.Memory{}, buildStatusCache(cfg, deps))

	pub, err := buildPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	assert.IsType(t, &publisher.Log{}, pub)
}
