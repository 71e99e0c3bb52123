package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/librilane/book-import/internal/application/importing"
	"github.com/librilane/book-import/internal/bootstrap"
	infrafile "github.com/librilane/book-import/internal/infrastructure/file"
	"github.com/librilane/book-import/internal/infrastructure/notify"
	"github.com/librilane/book-import/internal/infrastructure/openlibrary"
	"github.com/librilane/book-import/internal/infrastructure/repository"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	port := getEnv("PORT", "8080")
	leaseDuration := time.Duration(parseIntEnv("IMPORT_JOB_LEASE_SECONDS", 60)) * time.Second

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	jobRepo := repository.NewImportJobRepository(db, leaseDuration)
	catalog := repository.NewCatalogRepository(pool)
	quota := repository.NewQuotaRepository(pool, parseIntEnv("LIBRARY_MAX_RECORDS", 0))
	blobs := infrafile.NewLocalBlobStore(getEnv("IMPORT_BLOB_DIR", "./imports"))
	lookup := openlibrary.NewClient(openlibrary.Config{
		BaseURL:    getEnv("OPENLIBRARY_BASE_URL", ""),
		UserAgent:  getEnv("OPENLIBRARY_USER_AGENT", "book-import/1.0"),
		RPS:        parseIntEnv("OPENLIBRARY_RPS", 5),
		MaxRetries: parseIntEnv("OPENLIBRARY_MAX_RETRIES", 3),
		BatchCap:   parseIntEnv("OPENLIBRARY_BATCH_CAP", openlibrary.DefaultBatchCap),
	})
	notifier := notify.NewLogNotifier()

	submit := app.NewSubmitImport(jobRepo, blobs, quota, app.SubmitImportConfig{
		MaxUploadBytes: int64(parseIntEnv("IMPORT_MAX_UPLOAD_BYTES", 5<<20)),
		ChunkSize:      parseIntEnv("IMPORT_CHUNK_SIZE", 500),
		MaxCandidates:  parseIntEnv("IMPORT_MAX_CANDIDATES", 0),
	})
	status := app.NewGetJobStatus(jobRepo)
	retry := app.NewRetryImport(jobRepo)

	processor := app.NewProcessor(jobRepo, blobs, lookup, catalog, notifier, app.ProcessorConfig{
		UpsertWorkers: parseIntEnv("IMPORT_UPSERT_WORKERS", 8),
	})

	server := bootstrap.NewHTTPServer(submit, status, retry)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	worker := app.NewWorker(jobRepo, processor, app.WorkerConfig{
		Workers:       parseIntEnv("IMPORT_WORKERS", 4),
		PollInterval:  time.Duration(parseIntEnv("IMPORT_POLL_INTERVAL_MS", 500)) * time.Millisecond,
		LeaseDuration: leaseDuration,
	})
	worker.Start(workerCtx)

	go func() {
		if err := server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
