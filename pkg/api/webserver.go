package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/progress"
	"github.com/chenBenjamin97/traffic-counter/pkg/store"
	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

//VideoCounter counts the vehicles of a video file, blocking until it is done
type VideoCounter interface {
	Count(ctx context.Context, srcVideoPath string) (counter.Counts, error)
}

//RunStore gives access to finished and running counting runs
type RunStore interface {
	LatestRun(ctx context.Context, videoName string) (*store.Run, error)
	ListRuns(ctx context.Context) ([]store.Run, error)
}

//SetRouter builds the HTTP API. Counting runs started by uploads stop when baseCtx is done.
func SetRouter(baseCtx context.Context, vc VideoCounter, runs RunStore, live *progress.Registry) *gin.Engine {
	r := gin.Default()

	//serve html pages to client
	r.Static("/client", viper.GetString("frontend.static-files-path"))
	r.StaticFile("/", viper.GetString("frontend.static-files-path")+"home_page/dist/index.html")

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.ready")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		analyzed := ctx.Query("analyzed")
		if analyzed != "true" && analyzed != "false" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		var videoPath string
		if analyzed == "true" {
			videoPath = path.Join(viper.GetString("directory.ready"), filepath.Base(videoName)+"."+viper.GetString("video.prod_format"))
		} else {
			videoPath = path.Join(viper.GetString("directory.source"), filepath.Base(videoName)+"."+viper.GetString("video.prod_format"))
		}

		if _, err := os.Stat(videoPath); err != nil {
			if os.IsNotExist(err) {
				ctx.Status(http.StatusNotFound)
			} else {
				ctx.Status(http.StatusInternalServerError)
			}
			return
		}

		ctx.Header("Content-Type", "video/mp4")
		http.ServeFile(ctx.Writer, ctx.Request, videoPath)
	})

	apiRoutes.POST("/Upload", func(ctx *gin.Context) {
		file, fHeader, err := ctx.Request.FormFile("video")
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}
		defer file.Close()

		fileName := filepath.Base(fHeader.Filename)
		if existNames, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if utils.InSlice(fileName, existNames) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		log.Printf("api/Upload: Recived new file: name - '%s', size - %v Bytes", fileName, fHeader.Size)

		fileBytes, err := io.ReadAll(file)
		if err != nil {
			log.Printf("api/Upload: Could not read request's body, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		srcFilePath := path.Join(viper.GetString("directory.source"), fileName)
		if err = os.WriteFile(srcFilePath, fileBytes, 0444); err != nil {
			log.Printf("api/Upload: Could not write '%s' file, got '%v'", srcFilePath, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		go func() {
			if _, err := vc.Count(baseCtx, srcFilePath); err != nil {
				log.Printf("api/Upload: Counting '%s' failed, got '%v'", srcFilePath, err)
			}
		}()

		ctx.JSON(http.StatusAccepted, gin.H{"name": fileName})
	})

	apiRoutes.GET("/Counts", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		if status, ok := live.Get(videoName); ok {
			ctx.JSON(http.StatusOK, gin.H{"running": true, "status": status})
			return
		}

		run, err := runs.LatestRun(ctx.Request.Context(), videoName)
		if errors.Is(err, store.ErrNotFound) {
			ctx.Status(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("api/Counts: Error, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"running": false, "run": run})
	})

	apiRoutes.GET("/Runs", func(ctx *gin.Context) {
		list, err := runs.ListRuns(ctx.Request.Context())
		if err != nil {
			log.Printf("api/Runs: Error, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, list)
	})

	return r
}
