package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/progress"
	"github.com/chenBenjamin97/traffic-counter/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	calls chan string
}

func (f *fakeCounter) Count(ctx context.Context, srcVideoPath string) (counter.Counts, error) {
	f.calls <- srcVideoPath
	return counter.NewCounts(), nil
}

type testEnv struct {
	router *gin.Engine
	fake   *fakeCounter
	store  *store.Store
	live   *progress.Registry
	source string
	ready  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Reset()
	t.Cleanup(viper.Reset)

	root := t.TempDir()
	env := &testEnv{
		fake:   &fakeCounter{calls: make(chan string, 1)},
		live:   progress.NewRegistry(),
		source: filepath.Join(root, "source"),
		ready:  filepath.Join(root, "ready"),
	}
	require.NoError(t, os.Mkdir(env.source, 0755))
	require.NoError(t, os.Mkdir(env.ready, 0755))
	viper.Set("directory.source", env.source)
	viper.Set("directory.ready", env.ready)
	viper.Set("video.prod_format", "mp4")
	viper.Set("frontend.static-files-path", root+"/")

	st, err := store.NewStore(filepath.Join(root, "counts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	env.store = st

	env.router = SetRouter(context.Background(), env.fake, st, env.live)
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestListVideos(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.ready, "road.mp4"), []byte("x"), 0644))

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/ReadyVideosNames", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"road.mp4"}, names)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/UserUploadsVideosNames", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPlay(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.ready, "road.mp4"), []byte("video"), 0644))

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"missing name", "/api/Play?analyzed=true", http.StatusNotAcceptable},
		{"bad analyzed flag", "/api/Play?name=road&analyzed=maybe", http.StatusNotAcceptable},
		{"not analyzed yet", "/api/Play?name=road&analyzed=false", http.StatusNotFound},
		{"analyzed", "/api/Play?name=road&analyzed=true", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func uploadRequest(t *testing.T, fileName string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("video", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a video"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/Upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadStartsCounting(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(uploadRequest(t, "road.mp4"))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"name":"road.mp4"}`, w.Body.String())

	select {
	case p := <-env.fake.calls:
		assert.Equal(t, filepath.Join(env.source, "road.mp4"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("counting was not started")
	}

	_, err := os.Stat(filepath.Join(env.source, "road.mp4"))
	assert.NoError(t, err)

	// the same name again is refused
	w = env.do(uploadRequest(t, "road.mp4"))
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodPost, "/api/Upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/Counts", nil))
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/Counts?name=road.mp4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	runID, err := env.store.StartRun(ctx, "road.mp4", 640, 480)
	require.NoError(t, err)

	// a running job is reported from the live registry
	env.live.Start("road.mp4", runID)
	live := counter.NewCounts()
	live.Incoming[counter.Car] = 2
	env.live.Update("road.mp4", 7, live)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/Counts?name=road.mp4", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var running struct {
		Running bool            `json:"running"`
		Status  progress.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &running))
	assert.True(t, running.Running)
	assert.Equal(t, 7, running.Status.Frames)
	assert.Equal(t, 2, running.Status.Counts.Incoming[counter.Car])

	// once finished the stored report is returned
	final := counter.NewCounts()
	final.Outgoing[counter.Bus] = 4
	require.NoError(t, env.store.FinishRun(ctx, runID, 100, final, false))
	env.live.Finish("road.mp4")

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/Counts?name=road.mp4", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var finished struct {
		Running bool      `json:"running"`
		Run     store.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &finished))
	assert.False(t, finished.Running)
	assert.Equal(t, runID, finished.Run.RunID)
	require.NotNil(t, finished.Run.Counts)
	assert.Equal(t, 4, finished.Run.Counts.Outgoing[counter.Bus])
}

func TestRuns(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.StartRun(context.Background(), "road.mp4", 640, 480)
	require.NoError(t, err)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/Runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "road.mp4", runs[0].VideoName)
}
