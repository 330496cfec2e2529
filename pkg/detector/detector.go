package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"github.com/spf13/viper"
)

const (
	frameMarker = "Frame #:"
	fpsMarker   = "FPS: "
	boxMarker   = "{\"Class\":"
	eofMarker   = "EOF"
)

//Run executes the python detector (YOLO trained on COCO) over given video and listens to its standard output.
//Frames are sent through framesC in batches of utils.BatchLength, in the order the script printed them, so
//the receiver can apply them to the counter while the model keeps running on later frames.
//Because this function is the only one who writes to framesC, it closes it before returning.
func Run(ctx context.Context, videoPath string, framesC chan<- []*Frame) error {
	defer close(framesC)

	cmd := exec.CommandContext(ctx, "python3", viper.GetString("detector.script"),
		"--video", videoPath, "--model", viper.GetString("detector.model"))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("detector.Run: could not get stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("detector.Run: could not start detector: %w", err)
	}

	scanErr := Scan(ctx, stdout, framesC)

	//drain what is left so Wait does not block on a full pipe
	io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("detector.Run: detector exited: %w", err)
	}

	return scanErr
}

//Scan parses the detector's line protocol from r. It returns when "EOF" is read, r ends or ctx is done.
//It never closes framesC.
func Scan(ctx context.Context, r io.Reader, framesC chan<- []*Frame) error {
	batch := make([]*Frame, 0, utils.BatchLength)
	framesCounter := 0

	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case framesC <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		//allocate a new slice, the receiver keeps the old one
		batch = make([]*Frame, 0, utils.BatchLength)
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, frameMarker):
			if len(batch) == utils.BatchLength {
				if err := send(); err != nil {
					return err
				}
			}
			framesCounter++
			batch = append(batch, NewFrame(framesCounter))

		case line == eofMarker:
			return send()

		case strings.HasPrefix(line, fpsMarker):
			continue //log print of the script

		case strings.HasPrefix(line, boxMarker):
			if len(batch) == 0 {
				log.Printf("detector.Scan: Got a detection before any frame marker, skipping '%s'", line)
				continue
			}
			box := BoundingBox{}
			if err := json.Unmarshal([]byte(line), &box); err != nil {
				log.Printf("detector.Scan: Error, got '%v'", err)
				continue
			}
			frame := batch[len(batch)-1]
			frame.Boxes = append(frame.Boxes, &box)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("detector.Scan: %w", err)
	}

	return send()
}
