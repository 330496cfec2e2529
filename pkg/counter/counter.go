package counter

import "fmt"

//Counts holds the per class tallies. Live mirrors Incoming and drives the on screen incoming text.
type Counts struct {
	Live     map[VehicleClass]int `json:"live"`
	Incoming map[VehicleClass]int `json:"incoming"`
	Outgoing map[VehicleClass]int `json:"outgoing"`
}

//NewCounts returns tallies with every class present at zero
func NewCounts() Counts {
	c := Counts{
		Live:     make(map[VehicleClass]int),
		Incoming: make(map[VehicleClass]int),
		Outgoing: make(map[VehicleClass]int),
	}
	for _, class := range Classes() {
		c.Live[class] = 0
		c.Incoming[class] = 0
		c.Outgoing[class] = 0
	}
	return c
}

func (c Counts) clone() Counts {
	res := Counts{
		Live:     make(map[VehicleClass]int, len(c.Live)),
		Incoming: make(map[VehicleClass]int, len(c.Incoming)),
		Outgoing: make(map[VehicleClass]int, len(c.Outgoing)),
	}
	for k, v := range c.Live {
		res.Live[k] = v
	}
	for k, v := range c.Incoming {
		res.Incoming[k] = v
	}
	for k, v := range c.Outgoing {
		res.Outgoing[k] = v
	}
	return res
}

//Crossing is a detection that produced a new count in a zone
type Crossing struct {
	VehicleID int
	Zone      string
	Detection
}

//FrameResult describes what a single ProcessFrame call did
type FrameResult struct {
	Frame     int
	Crossings []Crossing
	//Skipped counts detections dropped before the zone tests (unknown class, degenerate box, low confidence)
	Skipped int
	Counts  Counts
}

//Counter owns the tracked vehicle registry and the tallies of one video.
//It has a single writer: frames must be handed to ProcessFrame one at a time, in arrival order.
type Counter struct {
	cfg    Config
	zones  Zones
	reg    *registry
	counts Counts
	nextID int
	frames int
}

//NewCounter validates cfg and derives the zones of a frameWidth x frameHeight video
func NewCounter(frameWidth, frameHeight int, cfg Config) (*Counter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zones, err := NewZones(frameWidth, frameHeight, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewCounter: %w", err)
	}

	return &Counter{
		cfg:    cfg,
		zones:  zones,
		reg:    newRegistry(),
		counts: NewCounts(),
	}, nil
}

//ProcessFrame applies one frame's detections: zone tests, match-or-register, count update and registry aging.
func (c *Counter) ProcessFrame(detections []Detection) FrameResult {
	c.frames++
	res := FrameResult{Frame: c.frames, Crossings: make([]Crossing, 0)}

	//matching only sees vehicles known before this frame
	previous := c.reg.sorted()
	staged := make(map[int]TrackedVehicle)

	for _, det := range detections {
		if !Known(det.Class) || !det.Valid() || det.Confidence < c.cfg.MinConfidence {
			res.Skipped++
			continue
		}

		center := det.Center()
		for _, zone := range []Zone{c.zones.Incoming, c.zones.Outgoing} {
			if !zone.Contains(center) {
				continue
			}

			if v, ok := match(previous, det.Class, center, c.cfg.MatchDX, c.cfg.MatchDY); ok {
				staged[v.ID] = TrackedVehicle{ID: v.ID, Class: det.Class, LastCenter: center, TTL: c.cfg.TTLFrames}
				continue
			}

			id := c.nextID
			c.nextID++
			c.count(zone.Name, det.Class)
			staged[id] = TrackedVehicle{ID: id, Class: det.Class, LastCenter: center, TTL: c.cfg.TTLFrames}
			res.Crossings = append(res.Crossings, Crossing{VehicleID: id, Zone: zone.Name, Detection: det})
		}
	}

	c.reg.advance(staged)
	res.Counts = c.Snapshot()

	return res
}

func (c *Counter) count(zone string, class VehicleClass) {
	switch zone {
	case ZoneIncoming:
		c.counts.Incoming[class]++
		c.counts.Live[class]++
	case ZoneOutgoing:
		c.counts.Outgoing[class]++
	}
}

//Snapshot returns a copy of the tallies, safe to keep after later frames
func (c *Counter) Snapshot() Counts {
	return c.counts.clone()
}

//Tracked returns the registry content in ascending id order
func (c *Counter) Tracked() []TrackedVehicle {
	return c.reg.sorted()
}

//Zones returns the counting zones derived at construction
func (c *Counter) Zones() Zones {
	return c.zones
}

//Frames returns how many frames were processed so far
func (c *Counter) Frames() int {
	return c.frames
}
