package detector

import (
	"image"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
)

//BoundingBox is one detection line printed by the detector script
type BoundingBox struct {
	Class      int
	Confidence float64
	Xmin       int
	Ymin       int
	Xmax       int
	Ymax       int
}

//Detection converts the printed box to the counter's representation
func (b *BoundingBox) Detection() counter.Detection {
	return counter.Detection{
		Class:      counter.VehicleClass(b.Class),
		Confidence: b.Confidence,
		//not image.Rect: it would swap inverted coordinates and hide degenerate boxes from the counter
		Box: image.Rectangle{Min: image.Pt(b.Xmin, b.Ymin), Max: image.Pt(b.Xmax, b.Ymax)},
	}
}

//Frame holds every detection the script printed for a single video frame
type Frame struct {
	Number int
	Boxes  []*BoundingBox
}

func NewFrame(frameNum int) *Frame {
	return &Frame{Number: frameNum, Boxes: make([]*BoundingBox, 0)}
}

//Detections returns the frame's boxes in the order they were printed
func (f *Frame) Detections() []counter.Detection {
	res := make([]counter.Detection, 0, len(f.Boxes))
	for _, b := range f.Boxes {
		res = append(res, b.Detection())
	}
	return res
}
