package counter

import (
	"image"
	"sort"
)

//TrackedVehicle is a recently counted vehicle kept around to suppress duplicate counts
type TrackedVehicle struct {
	ID         int
	Class      VehicleClass
	LastCenter image.Point
	TTL        int
}

type registry struct {
	vehicles map[int]TrackedVehicle
}

func newRegistry() *registry {
	return &registry{vehicles: make(map[int]TrackedVehicle)}
}

//sorted returns the tracked vehicles in ascending id order, the order matching scans them in
func (r *registry) sorted() []TrackedVehicle {
	res := make([]TrackedVehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

//match returns the first vehicle of the same class within maxDX and maxDY (exclusive) of center
func match(vehicles []TrackedVehicle, class VehicleClass, center image.Point, maxDX, maxDY int) (TrackedVehicle, bool) {
	for _, v := range vehicles {
		if v.Class != class {
			continue
		}
		if abs(center.X-v.LastCenter.X) < maxDX && abs(center.Y-v.LastCenter.Y) < maxDY {
			return v, true
		}
	}
	return TrackedVehicle{}, false
}

//advance ages every vehicle that was not staged this frame, drops the expired ones and installs the staged ones
func (r *registry) advance(staged map[int]TrackedVehicle) {
	for id, v := range r.vehicles {
		if _, ok := staged[id]; ok {
			continue
		}
		v.TTL--
		if v.TTL <= 0 {
			delete(r.vehicles, id)
			continue
		}
		r.vehicles[id] = v
	}

	for id, v := range staged {
		r.vehicles[id] = v
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
