package counter

import (
	"fmt"
	"image"
)

//VehicleClass is a detector class id. Values follow the COCO dataset the detector is trained on.
type VehicleClass int

const (
	Car        VehicleClass = 2
	Motorcycle VehicleClass = 3
	Bus        VehicleClass = 5
	Truck      VehicleClass = 7
)

var classNames = map[VehicleClass]string{
	Car:        "Car",
	Motorcycle: "Motorcycle",
	Bus:        "Bus",
	Truck:      "Truck",
}

//Classes returns every counted vehicle class in ascending id order
func Classes() []VehicleClass {
	return []VehicleClass{Car, Motorcycle, Bus, Truck}
}

//Known reports whether given class id is one of the counted vehicle classes
func Known(c VehicleClass) bool {
	_, ok := classNames[c]
	return ok
}

func (c VehicleClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

//MarshalText lets count maps encode with class names as JSON keys
func (c VehicleClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

//UnmarshalText accepts the names produced by MarshalText
func (c *VehicleClass) UnmarshalText(text []byte) error {
	for class, name := range classNames {
		if name == string(text) {
			*c = class
			return nil
		}
	}
	return fmt.Errorf("unknown vehicle class %q", string(text))
}

//Detection is a single bounding box reported by the detector for one frame
type Detection struct {
	Class      VehicleClass
	Confidence float64
	Box        image.Rectangle
}

//Center returns the middle point of the detection's bounding box
func (d Detection) Center() image.Point {
	return image.Pt(floorHalf(d.Box.Min.X+d.Box.Max.X), floorHalf(d.Box.Min.Y+d.Box.Max.Y))
}

//Valid is false for degenerate boxes (x1>=x2 or y1>=y2)
func (d Detection) Valid() bool {
	return d.Box.Min.X < d.Box.Max.X && d.Box.Min.Y < d.Box.Max.Y
}

// floorHalf rounds toward negative infinity so boxes partly outside the frame keep stable centers.
func floorHalf(v int) int {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}
