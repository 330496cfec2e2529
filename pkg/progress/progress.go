package progress

import (
	"sync"
	"time"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
)

//Status is the live state of a counting run that has not finished yet
type Status struct {
	RunID     string         `json:"run_id"`
	VideoName string         `json:"video_name"`
	Frames    int            `json:"frames"`
	StartedAt time.Time      `json:"started_at"`
	Counts    counter.Counts `json:"counts"`
}

//Registry holds the running counting jobs by video name. The counting loop is its only writer per video,
//the HTTP handlers read it.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Status
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Status)}
}

//Start marks given video as being counted
func (r *Registry) Start(videoName, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[videoName] = &Status{
		RunID:     runID,
		VideoName: videoName,
		StartedAt: time.Now(),
		Counts:    counter.NewCounts(),
	}
}

//Update stores the tallies after a processed frame. counts must be a snapshot the caller no longer mutates.
func (r *Registry) Update(videoName string, frames int, counts counter.Counts) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.runs[videoName]; ok {
		s.Frames = frames
		s.Counts = counts
	}
}

//Finish removes given video from the running jobs
func (r *Registry) Finish(videoName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.runs, videoName)
}

//Get returns a copy of the status of given video, if it is being counted
func (r *Registry) Get(videoName string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.runs[videoName]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

//Running reports whether given video is being counted
func (r *Registry) Running(videoName string) bool {
	_, ok := r.Get(videoName)
	return ok
}
