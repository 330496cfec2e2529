package utils

import (
	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/spf13/viper"
)

//CounterConfig reads the "counter" section of the configuration file. Missing keys keep their default value.
func CounterConfig() counter.Config {
	cfg := counter.DefaultConfig()

	if viper.IsSet("counter.band_tolerance") {
		cfg.BandTolerance = viper.GetInt("counter.band_tolerance")
	}
	if viper.IsSet("counter.match_dx") {
		cfg.MatchDX = viper.GetInt("counter.match_dx")
	}
	if viper.IsSet("counter.match_dy") {
		cfg.MatchDY = viper.GetInt("counter.match_dy")
	}
	if viper.IsSet("counter.ttl_frames") {
		cfg.TTLFrames = viper.GetInt("counter.ttl_frames")
	}
	if viper.IsSet("counter.zone_fraction") {
		cfg.ZoneFraction = viper.GetFloat64("counter.zone_fraction")
	}
	if viper.IsSet("counter.min_confidence") {
		cfg.MinConfidence = viper.GetFloat64("counter.min_confidence")
	}

	return cfg
}
