// Package cli implements chatcli, a command-line client for the chat auth
// server: key generation, signup, signin, identity lookup and offline token
// decoding.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrUnknownCommand = errors.New("unknown command")

// Config is read from the environment; flags override it per command.
type Config struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR" envDefault:"localhost:50051"`
}

// dial is a test seam for connecting to the server.
var dial = func(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

type App struct {
	config Config
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(in io.Reader, out io.Writer) (*App, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &App{config: cfg, reader: bufio.NewReader(in), out: out}, nil
}

const usage = `usage: chatcli <command> [flags]

commands:
  keygen   write an Ed25519 key pair as PEM files
  signup   register an account and print its token
  signin   sign in and print a token
  me       print the identity behind a token
  decode   verify a token offline against a public key
`

// Run dispatches args[0] to the matching command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUnknownCommand
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "keygen":
		return a.keygen(rest)
	case "signup":
		return a.signup(ctx, rest)
	case "signin":
		return a.signin(ctx, rest)
	case "me":
		return a.me(ctx, rest)
	case "decode":
		return a.decode(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// promptIfEmpty asks for value on the reader when the flag was not given.
func (a *App) promptIfEmpty(value *string, prompt string) error {
	if *value != "" {
		return nil
	}
	v, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	*value = v
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
