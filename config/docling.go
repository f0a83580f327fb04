package config

import (
	"fmt"
	"os"
	"time"
)

type DoclingConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	StatusCacheTTL time.Duration
	PresetFile     string
}

func LoadDoclingConfig() (DoclingConfig, error) {
	cfg := DoclingConfig{
		BaseURL:    envOr("DOCLING_API_URL", "http://localhost:5001/v1"),
		APIKey:     os.Getenv("DOCLING_API_KEY"),
		PresetFile: os.Getenv("DOCLING_PRESET_FILE"),
	}
	var err error
	if cfg.Timeout, err = envDuration("DOCLING_TIMEOUT", 0); err != nil {
		return cfg, err
	}
	if cfg.StatusCacheTTL, err = envDuration("DOCLING_STATUS_CACHE_TTL", 2*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const (
	StorageGCS = "gcs"
	StorageS3  = "s3"
)

type StorageConfig struct {
	Driver          string
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string

	// S3-compatible stores only
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func LoadStorageConfig() (StorageConfig, error) {
	cfg := StorageConfig{
		Driver:          envOr("STORAGE_DRIVER", StorageGCS),
		Bucket:          envOr("STORAGE_BUCKET", "user-files"),
		PublicBaseURL:   os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_FILE"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		Region:          envOr("S3_REGION", "us-east-1"),
		AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		SecretKey:       os.Getenv("S3_SECRET_KEY"),
		UseSSL:          envOr("S3_USE_SSL", "true") == "true",
	}
	switch cfg.Driver {
	case StorageGCS:
	case StorageS3:
		if cfg.Endpoint == "" {
			return cfg, fmt.Errorf("S3_ENDPOINT is required for STORAGE_DRIVER=%s", StorageS3)
		}
	default:
		return cfg, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
	}
	return cfg, nil
}

type ServerConfig struct {
	Port           string
	MaxUploadBytes int64
	WatchInterval  time.Duration
	WatchMax       time.Duration
	WatchWorkers   int
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{Port: envOr("PORT", "8080")}

	mb, err := envInt("MAX_UPLOAD_MB", 50)
	if err != nil {
		return cfg, err
	}
	cfg.MaxUploadBytes = int64(mb) << 20

	if cfg.WatchInterval, err = envDuration("TASK_WATCH_INTERVAL", 2*time.Second); err != nil {
		return cfg, err
	}
	if cfg.WatchMax, err = envDuration("TASK_WATCH_MAX", 30*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.WatchWorkers, err = envInt("TASK_WATCH_WORKERS", 4); err != nil {
		return cfg, err
	}
	return cfg, nil
}
