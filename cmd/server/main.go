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

	"social/internal/auth"
	"social/internal/config"
	"social/internal/db"
	"social/internal/media"
	"social/internal/models"
	"social/internal/server"
	"social/internal/storage"
	"social/internal/util"
)

func main() {
	configPath := flag.String("config", getenv("CONFIG_FILE", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	logger := log.New(os.Stderr, "social ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal(err)
	}
	defer database.Close()
	logger.Printf("connected to %s database", cfg.Database.Driver)

	var uploads storage.Uploader
	var files http.Handler
	if cfg.Storage.CloudinaryURL != "" {
		uploads, err = storage.NewCloudinary(cfg.Storage.CloudinaryURL)
	} else {
		var disk *storage.Disk
		if disk, err = storage.NewDisk(cfg.Storage.UploadDir, cfg.Storage.PublicURL); err == nil {
			uploads, files = disk, disk.Handler()
		}
	}
	if err != nil {
		logger.Fatal(err)
	}

	clock := util.System
	srv := server.New(server.Deps{
		Store:      models.NewStore(database, clock),
		Issuer:     auth.NewIssuer(cfg.SecretKey, clock),
		Images:     media.NewProcessor(),
		Uploads:    uploads,
		Files:      files,
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	logger.Println("server stopped")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
