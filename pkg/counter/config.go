package counter

import (
	"errors"
	"fmt"
)

var (
	//ErrInvalidConfig is returned when tuning values can not describe a usable geometry
	ErrInvalidConfig = errors.New("invalid counter configuration")
	//ErrInvalidFrameSize is returned for zero or negative frame dimensions
	ErrInvalidFrameSize = errors.New("invalid frame size")
)

//Config holds the tuning values of the counter. They depend on camera framing and resolution.
type Config struct {
	//BandTolerance is the vertical distance (px) from a zone line within which a center is "at" the line
	BandTolerance int
	//MatchDX and MatchDY bound the per-axis distance (px) between a detection and a tracked vehicle
	MatchDX int
	MatchDY int
	//TTLFrames is how many frames a tracked vehicle survives without being seen again
	TTLFrames int
	//ZoneFraction places both zone lines at frame_height * ZoneFraction
	ZoneFraction float64
	//MinConfidence drops detections below it. Zero keeps everything.
	MinConfidence float64
}

//DefaultConfig returns the values the counter was tuned with
func DefaultConfig() Config {
	return Config{
		BandTolerance: 10,
		MatchDX:       50,
		MatchDY:       50,
		TTLFrames:     20,
		ZoneFraction:  0.4,
		MinConfidence: 0,
	}
}

//Validate checks every value is inside its usable range
func (c Config) Validate() error {
	if c.BandTolerance <= 0 {
		return fmt.Errorf("%w: band tolerance must be positive, got %d", ErrInvalidConfig, c.BandTolerance)
	}
	if c.MatchDX <= 0 || c.MatchDY <= 0 {
		return fmt.Errorf("%w: match thresholds must be positive, got dx=%d dy=%d", ErrInvalidConfig, c.MatchDX, c.MatchDY)
	}
	if c.TTLFrames <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %d", ErrInvalidConfig, c.TTLFrames)
	}
	if c.ZoneFraction <= 0 || c.ZoneFraction >= 1 {
		return fmt.Errorf("%w: zone fraction must be in (0,1), got %v", ErrInvalidConfig, c.ZoneFraction)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence must be in [0,1], got %v", ErrInvalidConfig, c.MinConfidence)
	}
	return nil
}
