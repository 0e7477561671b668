package config

import (
	"github.com/JaimeStill/upload-lab/internal/pinning"
	"github.com/JaimeStill/upload-lab/internal/processing"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/pkg/database"
	"github.com/JaimeStill/upload-lab/pkg/logging"
	"github.com/JaimeStill/upload-lab/pkg/middleware"
	"github.com/JaimeStill/upload-lab/pkg/openapi"
	"github.com/JaimeStill/upload-lab/pkg/storage"
)

var loggingEnv = &logging.Env{
	Level:  "LOGGING_LEVEL",
	Format: "LOGGING_FORMAT",
	Source: "LOGGING_SOURCE",
}

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CORS_ENABLED",
	Origins:          "CORS_ORIGINS",
	AllowedMethods:   "CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "CORS_EXPOSED_HEADERS",
	AllowCredentials: "CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CORS_MAX_AGE",
}

var storageEnv = &storage.Env{
	BasePath:      "STORAGE_BASE_PATH",
	MaxUploadSize: "STORAGE_MAX_UPLOAD_SIZE",
}

var processingEnv = &processing.Env{
	Delay:      "PROCESSING_DELAY",
	Operations: "PROCESSING_OPERATIONS",
}

var trackingEnv = &tracking.Env{
	Backend:       "TRACKING_BACKEND",
	TTL:           "TRACKING_TTL",
	MaxEntries:    "TRACKING_MAX_ENTRIES",
	SweepInterval: "TRACKING_SWEEP_INTERVAL",
}

var databaseEnv = &database.Env{
	Host:            "TRACKING_DB_HOST",
	Port:            "TRACKING_DB_PORT",
	Name:            "TRACKING_DB_NAME",
	User:            "TRACKING_DB_USER",
	Password:        "TRACKING_DB_PASSWORD",
	SSLMode:         "TRACKING_DB_SSL_MODE",
	ApplicationName: "TRACKING_DB_APPLICATION_NAME",
	MaxOpenConns:    "TRACKING_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "TRACKING_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "TRACKING_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "TRACKING_DB_CONN_TIMEOUT",
}

var pinningEnv = &pinning.Env{
	Backend:      "PINNING_BACKEND",
	Prefix:       "PINNING_PREFIX",
	Bucket:       "PINNING_S3_BUCKET",
	Region:       "PINNING_S3_REGION",
	Endpoint:     "PINNING_S3_ENDPOINT",
	AccessKey:    "PINNING_S3_ACCESS_KEY",
	SecretKey:    "PINNING_S3_SECRET_KEY",
	UsePathStyle: "PINNING_S3_USE_PATH_STYLE",
}

var openAPIEnv = &openapi.Env{
	Title:       "OPENAPI_TITLE",
	Description: "OPENAPI_DESCRIPTION",
	Version:     "OPENAPI_VERSION",
}
