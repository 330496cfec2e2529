package detector

import (
	"context"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect runs Scan over input and gathers every batch it sends
func collect(t *testing.T, input string) ([][]*Frame, error) {
	t.Helper()

	framesC := make(chan []*Frame)
	errC := make(chan error, 1)
	go func() {
		errC <- Scan(context.Background(), strings.NewReader(input), framesC)
		close(framesC)
	}()

	batches := make([][]*Frame, 0)
	for b := range framesC {
		batches = append(batches, b)
	}
	return batches, <-errC
}

func TestScanParsesFramesAndBoxes(t *testing.T) {
	input := strings.Join([]string{
		"loading weights",
		"Frame #: 1",
		`{"Class":2,"Confidence":0.91,"Xmin":300,"Ymin":185,"Xmax":340,"Ymax":199}`,
		`{"Class":7,"Confidence":0.55,"Xmin":10,"Ymin":20,"Xmax":60,"Ymax":80}`,
		"FPS: 23.5",
		"Frame #: 2",
		"Frame #: 3",
		`{"Class":3,"Confidence":0.4,"Xmin":1,"Ymin":2,"Xmax":3,"Ymax":4}`,
		"EOF",
		"Frame #: 4",
	}, "\n")

	batches, err := collect(t, input)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	frames := batches[0]
	require.Len(t, frames, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{frames[0].Number, frames[1].Number, frames[2].Number})
	assert.Len(t, frames[0].Boxes, 2)
	assert.Empty(t, frames[1].Boxes)
	assert.Len(t, frames[2].Boxes, 1)

	dets := frames[0].Detections()
	require.Len(t, dets, 2)
	assert.Equal(t, counter.Car, dets[0].Class)
	assert.InDelta(t, 0.91, dets[0].Confidence, 1e-9)
	assert.Equal(t, image.Pt(320, 192), dets[0].Center())
	assert.Equal(t, counter.Truck, dets[1].Class)
}

func TestScanBatchesInOrder(t *testing.T) {
	var sb strings.Builder
	total := utils.BatchLength*2 + 3
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&sb, "Frame #: %d\n", i)
		fmt.Fprintf(&sb, `{"Class":2,"Confidence":0.9,"Xmin":%d,"Ymin":0,"Xmax":%d,"Ymax":10}`+"\n", i, i+10)
	}

	// no EOF marker: the remaining frames are flushed when the reader ends
	batches, err := collect(t, sb.String())
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], utils.BatchLength)
	assert.Len(t, batches[1], utils.BatchLength)
	assert.Len(t, batches[2], 3)

	next := 1
	for _, b := range batches {
		for _, f := range b {
			assert.Equal(t, next, f.Number)
			require.Len(t, f.Boxes, 1)
			assert.Equal(t, next, f.Boxes[0].Xmin)
			next++
		}
	}
}

func TestScanSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"Class":2,"Confidence":0.9,"Xmin":0,"Ymin":0,"Xmax":10,"Ymax":10}`,
		"Frame #: 1",
		`{"Class":2,"Confidence":`,
		`{"Class":5,"Confidence":0.7,"Xmin":0,"Ymin":0,"Xmax":10,"Ymax":10}`,
		"EOF",
	}, "\n")

	batches, err := collect(t, input)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, batches[0][0].Boxes, 1)
	assert.Equal(t, 5, batches[0][0].Boxes[0].Class)
}

func TestScanStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// unbuffered and never read: the only way out is the cancelled context
	framesC := make(chan []*Frame)
	err := Scan(ctx, strings.NewReader("Frame #: 1\nEOF\n"), framesC)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDegenerateBoxStaysDegenerate(t *testing.T) {
	b := BoundingBox{Class: 2, Confidence: 0.8, Xmin: 50, Ymin: 10, Xmax: 40, Ymax: 20}
	assert.False(t, b.Detection().Valid())
}
