package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterConfigDefaults(t *testing.T) {
	viper.Reset()
	assert.Equal(t, counter.DefaultConfig(), CounterConfig())
}

func TestCounterConfigOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("counter.band_tolerance", 15)
	viper.Set("counter.ttl_frames", 30)
	viper.Set("counter.zone_fraction", 0.55)

	cfg := CounterConfig()
	assert.Equal(t, 15, cfg.BandTolerance)
	assert.Equal(t, 30, cfg.TTLFrames)
	assert.InDelta(t, 0.55, cfg.ZoneFraction, 1e-9)
	assert.Equal(t, 50, cfg.MatchDX)
	assert.Equal(t, 50, cfg.MatchDY)
	require.NoError(t, cfg.Validate())
}

func TestListDirAndInSlice(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "road.mp4"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junction.mp4"), []byte("x"), 0644))

	names, err := ListDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"road.mp4", "junction.mp4"}, names)
	assert.True(t, InSlice("road.mp4", names))
	assert.False(t, InSlice("bridge.mp4", names))

	_, err = ListDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "road", TrimExt("road.mp4"))
	assert.Equal(t, "a.b", TrimExt("a.b.mp4"))
	assert.Equal(t, "noext", TrimExt("noext"))
	assert.Equal(t, ".hidden", TrimExt(".hidden"))
}
