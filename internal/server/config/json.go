package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hildxd/chat-server/internal/flagx"
	"github.com/hildxd/chat-server/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Pointer fields tell "absent" from
// zero so that a partial file only overrides what it names.
type JsonConfig struct {
	HTTPAddr        *string         `json:"http_addr"`
	GRPCAddr        *string         `json:"grpc_addr"`
	DatabaseDriver  *string         `json:"db_driver"`
	DatabaseDSN     *string         `json:"db_url"`
	PrivateKey      *string         `json:"sk"`
	PublicKey       *string         `json:"pk"`
	HashWorkers     *int64          `json:"hash_workers"`
	LogLevel        *string         `json:"log_level"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
	OTLPEndpoint    *string         `json:"otlp_endpoint"`
	S3Region        *string         `json:"s3_region"`
	S3BaseEndpoint  *string         `json:"s3_base_endpoint"`
	S3AccessKey     *string         `json:"s3_access_key"`
	S3SecretKey     *string         `json:"s3_secret_key"`
	S3UsePathStyle  *bool           `json:"s3_use_path_style"`
}

// parseJson applies the file named by -c/-config (or CHAT_CONFIG). No file
// configured is not an error; an unreadable or invalid one is.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.PrivateKey, c.PrivateKey)
	setString(&config.PublicKey, c.PublicKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	if c.HashWorkers != nil {
		config.HashWorkers = *c.HashWorkers
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
