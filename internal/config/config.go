package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/xwurfel/gallerykit/internal/cloud"
)

type Config struct {
	App     AppConfig
	Media   MediaConfig
	Index   IndexConfig
	Redis   RedisConfig
	MinIO   MinIOConfig
	Cloud   CloudConfig
	Gallery GalleryConfig
}

type AppConfig struct {
	Env         string
	Port        string
	Version     string
	Debug       bool
	CORSOrigins string
}

type MediaConfig struct {
	Root string
}

type IndexConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
}

type CloudConfig struct {
	Providers []cloud.Provider
	JWTSecret string
}

type GalleryConfig struct {
	SelectionMode    string
	MaxSelection     int
	GridColumns      int
	GroupByAlbum     bool
	DefaultOpenAlbum string
}

func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Debug:       getBoolEnv("APP_DEBUG", false),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Media: MediaConfig{
			Root: getEnv("MEDIA_ROOT", "./media"),
		},
		Index: IndexConfig{
			Enabled:  getBoolEnv("MEDIA_INDEX_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "postgres"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "gallery_user"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "gallery_index"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "redis"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:        getEnv("MINIO_ENDPOINT", "minio:9000"),
			AccessKeyID:     getEnv("MINIO_ROOT_USER", ""),
			SecretAccessKey: getEnv("MINIO_ROOT_PASSWORD", ""),
			UseSSL:          getBoolEnv("MINIO_USE_SSL", false),
			Bucket:          getEnv("MINIO_BUCKET_MEDIA", "gallery-media"),
		},
		Cloud: CloudConfig{
			Providers: getProvidersEnv("CLOUD_PROVIDERS"),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Gallery: GalleryConfig{
			SelectionMode:    getEnv("GALLERY_SELECTION_MODE", "SINGLE"),
			MaxSelection:     getIntEnv("GALLERY_MAX_SELECTION", 1),
			GridColumns:      getIntEnv("GALLERY_GRID_COLUMNS", 3),
			GroupByAlbum:     getBoolEnv("GALLERY_GROUP_BY_ALBUM", true),
			DefaultOpenAlbum: getEnv("GALLERY_DEFAULT_ALBUM", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// getProvidersEnv parses a comma-separated provider list, skipping unknown
// tags.
func getProvidersEnv(key string) []cloud.Provider {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var providers []cloud.Provider
	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if p, err := cloud.ParseProvider(tag); err == nil {
			providers = append(providers, p)
		}
	}
	return providers
}
