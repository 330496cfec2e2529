package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/detector"
	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"gocv.io/x/gocv"
)

var classColors = map[counter.VehicleClass]color.RGBA{
	counter.Car:        {0, 255, 0, 0},
	counter.Motorcycle: {255, 0, 0, 0},
	counter.Bus:        {0, 0, 255, 0},
	counter.Truck:      {255, 255, 0, 0},
}

func classColor(c counter.VehicleClass) color.RGBA {
	if col, ok := classColors[c]; ok {
		return col
	}
	return utils.DefaultBoxColor
}

//plotZones draws both counting lines
func plotZones(frame *gocv.Mat, zones counter.Zones) {
	gocv.Line(frame, image.Pt(zones.Incoming.XStart, zones.Incoming.LineY), image.Pt(zones.Incoming.XEnd, zones.Incoming.LineY), utils.IncomingLineColor, utils.LineThickness)
	gocv.Line(frame, image.Pt(zones.Outgoing.XStart, zones.Outgoing.LineY), image.Pt(zones.Outgoing.XEnd, zones.Outgoing.LineY), utils.OutgoingLineColor, utils.LineThickness)
}

//plotCounts writes the incoming (live) and outgoing tallies in the top left corner
func plotCounts(frame *gocv.Mat, counts counter.Counts) {
	yOffset := 20
	putLine := func(text string) {
		gocv.PutText(frame, text, image.Pt(10, yOffset), gocv.FontHersheySimplex, 0.6, utils.TextColor, 2)
		yOffset += 30
	}

	putLine("INCOMING:")
	for _, class := range counter.Classes() {
		putLine(fmt.Sprintf("%s: %d", class, counts.Live[class]))
	}

	putLine("OUTGOING:")
	for _, class := range counter.Classes() {
		putLine(fmt.Sprintf("%s: %d", class, counts.Outgoing[class]))
	}
}

//plotBoxes draws every known vehicle box of the frame with its class and confidence above it
func plotBoxes(frame *gocv.Mat, boxes []*detector.BoundingBox) {
	for _, b := range boxes {
		det := b.Detection()
		if !counter.Known(det.Class) || !det.Valid() {
			continue
		}

		plotColor := classColor(det.Class)
		gocv.Rectangle(frame, det.Box, plotColor, utils.BoxThickness)
		gocv.PutText(frame, fmt.Sprintf("%s %.2f", det.Class, det.Confidence), image.Pt(det.Box.Min.X, det.Box.Min.Y-10), gocv.FontHersheySimplex, 0.5, plotColor, 2)
	}
}

//plotFrame draws zones, boxes and the tallies after the frame has been counted.
//It only reads the counter's results.
func plotFrame(frame *gocv.Mat, zones counter.Zones, f *detector.Frame, res counter.FrameResult) {
	plotZones(frame, zones)
	plotCounts(frame, res.Counts)
	plotBoxes(frame, f.Boxes)
}
