package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/hildxd/chat-server/internal/flagx"
)

// parseFlags applies the server's own flags from args, ignoring anything
// else on the command line.
//
//	-http-addr string   HTTP listen address
//	-grpc-addr string   gRPC listen address
//	-db-driver string   postgres or sqlite
//	-d string           database DSN
//	-sk string          private key source
//	-pk string          public key source
//	-hash-workers int   concurrent Argon2 computations
//	-log-level string   debug, info, warn or error
//	-otlp string        OTLP/HTTP traces endpoint
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-http-addr", "-grpc-addr", "-db-driver", "-d", "-sk", "-pk",
		"-hash-workers", "-log-level", "-otlp", "-shutdown-timeout",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "http-addr", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCAddr, "grpc-addr", config.GRPCAddr, "gRPC listen address")
	fs.StringVar(&config.DatabaseDriver, "db-driver", config.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PrivateKey, "sk", config.PrivateKey, "private key source")
	fs.StringVar(&config.PublicKey, "pk", config.PublicKey, "public key source")
	fs.Int64Var(&config.HashWorkers, "hash-workers", config.HashWorkers, "concurrent password hash computations")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.OTLPEndpoint, "otlp", config.OTLPEndpoint, "OTLP/HTTP traces endpoint")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
