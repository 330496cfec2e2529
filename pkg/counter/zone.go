package counter

import (
	"fmt"
	"image"
)

const (
	ZoneIncoming = "incoming"
	ZoneOutgoing = "outgoing"
)

//Zone is a horizontal counting line with a crossing band of Tolerance pixels around it
type Zone struct {
	Name      string
	LineY     int
	XStart    int
	XEnd      int
	Tolerance int
}

//Contains reports whether p is inside the zone's crossing band. Both span ends are inclusive.
func (z Zone) Contains(p image.Point) bool {
	if p.X < z.XStart || p.X > z.XEnd {
		return false
	}
	dy := p.Y - z.LineY
	if dy < 0 {
		dy = -dy
	}
	return dy < z.Tolerance
}

//Zones are the two counting lines of a frame
type Zones struct {
	Incoming Zone
	Outgoing Zone
}

//NewZones derives both zones from the frame size: incoming covers the right half, outgoing the left half
func NewZones(frameWidth, frameHeight int, cfg Config) (Zones, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return Zones{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrameSize, frameWidth, frameHeight)
	}

	lineY := int(float64(frameHeight) * cfg.ZoneFraction)
	middle := frameWidth / 2

	return Zones{
		Incoming: Zone{Name: ZoneIncoming, LineY: lineY, XStart: middle, XEnd: frameWidth, Tolerance: cfg.BandTolerance},
		Outgoing: Zone{Name: ZoneOutgoing, LineY: lineY, XStart: 0, XEnd: middle, Tolerance: cfg.BandTolerance},
	}, nil
}
