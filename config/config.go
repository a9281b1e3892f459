package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultImagesSubDir     = "author_images"
	DefaultImageCacheSubDir = "image_cache"
	DefaultMetadataSubDir   = "metadata"
)

const (
	defaultImageQueueSize  = 200
	defaultNumImageWorkers = 2
)

type Config struct {
	// database path
	DatabasePath string

	// media storage configuration
	StoragePath    string // primary root for author images, cache and metadata
	ImagesPath     string // full-calculated path for author source images
	ImageCachePath string // full-calculated path for resized variants
	MetadataPath   string // full-calculated path for per-book metadata files

	// worker settings
	ImageQueueSize  int
	NumImageWorkers int

	// auth settings
	JWTSecret string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "catalog.db")

	storage := getEnvOrDefault("STORAGE_PATH", filepath.Join(".", "catalog_storage"))
	absStorage, err := filepath.Abs(storage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for storage '%s': %w", storage, err)
	}

	imagesSubDir := getEnvOrDefault("IMAGES_SUBDIR", DefaultImagesSubDir)
	cacheSubDir := getEnvOrDefault("IMAGE_CACHE_SUBDIR", DefaultImageCacheSubDir)
	metadataSubDir := getEnvOrDefault("METADATA_SUBDIR", DefaultMetadataSubDir)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		DatabasePath:    dbPath,
		StoragePath:     absStorage,
		ImagesPath:      filepath.Join(absStorage, imagesSubDir),
		ImageCachePath:  filepath.Join(absStorage, cacheSubDir),
		MetadataPath:    filepath.Join(absStorage, metadataSubDir),
		ImageQueueSize:  getEnvIntOrDefault("IMAGE_QUEUE_SIZE", defaultImageQueueSize),
		NumImageWorkers: getEnvIntOrDefault("NUM_IMAGE_WORKERS", defaultNumImageWorkers),
		JWTSecret:       jwtSecret,
	}

	return cfg, nil
}
