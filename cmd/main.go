package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chenBenjamin97/traffic-counter/pkg/api"
	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/chenBenjamin97/traffic-counter/pkg/progress"
	"github.com/chenBenjamin97/traffic-counter/pkg/store"
	"github.com/chenBenjamin97/traffic-counter/pkg/utils"
	"github.com/chenBenjamin97/traffic-counter/pkg/video"
	"github.com/spf13/viper"
)

var videoPath = flag.String("video", "", "Count the vehicles of this video file, print the final counts and exit")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("video.prod_format", "mp4")
	viper.SetDefault("video.codec", "XVID")
	viper.SetDefault("database.path", "counts.db")
	viper.SetDefault("http.port", "8080")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error: Could not read config file, got '%v'", err)
	}

	//first - create project's data root dir, then the other directories from config file
	dirs := []string{viper.GetString("directory.root")}
	for _, dir := range viper.GetStringMapString("directory") {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0766); err != nil {
			log.Printf("Error Creating '%s' directory, got '%v'", dir, err)
		}
	}

	if viper.GetString("directory.source") == "" || viper.GetString("directory.ready") == "" || viper.GetString("detector.script") == "" {
		log.Fatalf("Error: Missing critical configurations")
	}

	//fail before any frame is read if the counter tuning is unusable
	if err := utils.CounterConfig().Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	st, err := store.NewStore(viper.GetString("database.path"))
	if err != nil {
		log.Fatalf("Error: Could not open database, got '%v'", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	live := progress.NewRegistry()

	if *videoPath != "" {
		p := &video.Pipeline{Recorder: st, Progress: live, Display: viper.GetBool("video.display")}
		counts, err := p.Count(ctx, *videoPath)
		if err != nil {
			log.Fatalf("Error: Got '%v'", err)
		}
		if err := counter.WriteReport(os.Stdout, counts); err != nil {
			log.Fatalf("Error: Got '%v'", err)
		}
		return
	}

	p := &video.Pipeline{Recorder: st, Progress: live}
	server := &http.Server{
		Addr:    ":" + viper.GetString("http.port"),
		Handler: api.SetRouter(ctx, p, st, live),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error: Got '%v'", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
