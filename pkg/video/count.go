package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/detector"
	"github.com/chenBenjamin97/traffic-counter/pkg/progress"
	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

const windowName = "Detected Vehicles"

//RunRecorder persists runs and their crossing events
type RunRecorder interface {
	StartRun(ctx context.Context, videoName string, frameWidth, frameHeight int) (string, error)
	RecordCrossings(ctx context.Context, runID string, frame int, crossings []counter.Crossing) error
	FinishRun(ctx context.Context, runID string, frames int, counts counter.Counts, cancelled bool) error
}

//Pipeline counts vehicles in videos. Each Count call owns its own counter, so several videos may be counted at once.
type Pipeline struct {
	Recorder RunRecorder
	Progress *progress.Registry
	//Display shows every processed frame in a window, 'q' stops the run
	Display bool
}

//Count reads given video, runs the detector over it and counts vehicles crossing the incoming and outgoing lines.
//The annotated video (XVID, '.avi' in temp directory, then remuxed by ffmpeg) is saved in 'ready' directory from
//configuration file. Cancelling ctx stops after the current frame; the tallies counted so far are still returned and stored.
func (p *Pipeline) Count(ctx context.Context, srcVideoPath string) (counter.Counts, error) {
	videoName := filepath.Base(srcVideoPath)
	tmpVideoPath := path.Join(viper.GetString("directory.temp"), utils.TrimExt(videoName)+".avi")
	outputVideoPath := path.Join(viper.GetString("directory.ready"), utils.TrimExt(videoName)+"."+viper.GetString("video.prod_format"))

	cap, err := gocv.VideoCaptureFile(srcVideoPath)
	if err != nil {
		return counter.Counts{}, fmt.Errorf("Count: could not open '%s': %w", srcVideoPath, err)
	}
	defer cap.Close()

	width, height := int(cap.Get(gocv.VideoCaptureFrameWidth)), int(cap.Get(gocv.VideoCaptureFrameHeight))

	cnt, err := counter.NewCounter(width, height, utils.CounterConfig())
	if err != nil {
		return counter.Counts{}, fmt.Errorf("Count: '%s': %w", srcVideoPath, err)
	}

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}
	videoWriter, err := gocv.VideoWriterFile(tmpVideoPath, viper.GetString("video.codec"), fps, width, height, true)
	if err != nil {
		return counter.Counts{}, fmt.Errorf("Count: could not create '%s': %w", tmpVideoPath, err)
	}
	defer os.Remove(tmpVideoPath) //remove '.avi' temp file at the end of this function

	writerClosed := false
	closeWriter := func() {
		if !writerClosed {
			videoWriter.Close()
			writerClosed = true
		}
	}
	defer closeWriter()

	runID, err := p.Recorder.StartRun(ctx, videoName, width, height)
	if err != nil {
		return counter.Counts{}, fmt.Errorf("Count: %w", err)
	}
	log.Printf("Count: Started run '%s' for '%s' (%dx%d)", runID, videoName, width, height)

	if p.Progress != nil {
		p.Progress.Start(videoName, runID)
		defer p.Progress.Finish(videoName)
	}

	var window *gocv.Window
	if p.Display {
		window = gocv.NewWindow(windowName)
		defer window.Close()
	}

	detectCtx, stopDetector := context.WithCancel(ctx)
	defer stopDetector()

	framesC := make(chan []*detector.Frame)
	detectorErrC := make(chan error, 1)
	go func() {
		detectorErrC <- detector.Run(detectCtx, srcVideoPath, framesC)
	}()

	frameMat := gocv.NewMat()
	defer frameMat.Close()

	cancelled := false

mainLoop:
	for {
		select {
		case <-ctx.Done():
			cancelled = true
			break mainLoop
		case frames, ok := <-framesC:
			if !ok { //detector closed chan
				break mainLoop
			}

			//batches arrive in frame order and are applied one frame at a time
			for _, f := range frames {
				if ctx.Err() != nil {
					cancelled = true
					break mainLoop
				}

				if !cap.Read(&frameMat) || frameMat.Empty() { //detector printed more frames than the video holds
					log.Printf("Count: '%s' ended before detector frame %d", videoName, f.Number)
					break mainLoop
				}

				res := cnt.ProcessFrame(f.Detections())
				if err := p.Recorder.RecordCrossings(ctx, runID, res.Frame, res.Crossings); err != nil {
					log.Printf("Count: Error recording crossings of frame %d, got '%v'", res.Frame, err)
				}
				if p.Progress != nil {
					p.Progress.Update(videoName, res.Frame, res.Counts)
				}

				plotFrame(&frameMat, cnt.Zones(), f, res)
				if err := videoWriter.Write(frameMat); err != nil {
					log.Printf("Count: Error writing frame %d, got '%v'", res.Frame, err)
				}

				if window != nil {
					window.IMShow(frameMat)
					if window.WaitKey(1)&0xFF == 'q' {
						cancelled = true
						break mainLoop
					}
				}
			}
		}
	}

	stopDetector()
	if err := <-detectorErrC; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Count: Detector error for '%s', got '%v'", videoName, err)
	}

	final := cnt.Snapshot()

	//ctx may be done already, the final tallies must be stored anyway
	if err := p.Recorder.FinishRun(context.Background(), runID, cnt.Frames(), final, cancelled); err != nil {
		log.Printf("Count: Error finishing run '%s', got '%v'", runID, err)
	}
	log.Printf("Count: Finished run '%s' for '%s' after %d frames (cancelled: %v)", runID, videoName, cnt.Frames(), cancelled)

	closeWriter() //ffmpeg needs the finished file
	//Convert from 'avi' to wanted format. example: ffmpeg -y -i road.avi road.mp4
	cmd := exec.Command("ffmpeg", "-y", "-i", tmpVideoPath, outputVideoPath)
	if err := cmd.Run(); err != nil {
		log.Printf("Count: Error from ffmpeg, got '%v'", err)
	}

	return final, nil
}
