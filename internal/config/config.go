// Package config loads the migration settings from environment variables,
// which main populates from a .env file when one exists.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

type MongoConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	DSN string
}

type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Config holds everything the engine needs to reach the three stores.
type Config struct {
	Mongo    MongoConfig
	Postgres PostgresConfig
	S3       S3Config
}

// Load reads the configuration from the environment and fails fast on any
// missing required key. Blob-only runs never open the relational store, so
// its DSN is only required when requirePostgres is set.
func Load(requirePostgres bool) (*Config, error) {
	cfg := &Config{
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGO_URI"),
			Database: os.Getenv("MONGO_DATABASE"),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		S3: S3Config{
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			Region:         getEnvOr("S3_REGION", "us-east-1"),
			Bucket:         os.Getenv("S3_BUCKET"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", true),
		},
	}

	required := map[string]string{
		"MONGO_URI":      cfg.Mongo.URI,
		"MONGO_DATABASE": cfg.Mongo.Database,
		"S3_BUCKET":      cfg.S3.Bucket,
		"S3_ACCESS_KEY":  cfg.S3.AccessKey,
		"S3_SECRET_KEY":  cfg.S3.SecretKey,
	}
	if requirePostgres {
		required["POSTGRES_DSN"] = cfg.Postgres.DSN
	}
	for key, value := range required {
		if value == "" {
			return nil, errors.Errorf("%s environment variable not set", key)
		}
	}

	return cfg, nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
