// Command uploadmodel uploads the local detector model to the configured
// storage backend and prints the public URL to use as MODEL_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"parking_backend/internal/feature/platedetection/adapters/onnx"
	"parking_backend/internal/platform/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	modelPath := flag.String("model", onnx.LoadConfig().ModelPath, "path of the model file to upload")
	folder := flag.String("folder", "models", "storage folder for the model")
	flag.Parse()

	data, err := os.ReadFile(*modelPath)
	if err != nil {
		log.Fatalf("failed to read model: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg := storage.LoadConfigFromEnv()
	cfg.Timeout = 10 * time.Minute
	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	if store == nil {
		log.Fatal("STORAGE_BACKEND=none; nothing to upload to")
	}

	key := *folder + "/" + filepath.Base(*modelPath)
	url, err := store.Upload(ctx, key, data, "application/octet-stream")
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}
	log.Printf("uploaded %s (%d bytes)", key, len(data))
	fmt.Println(url)
}
