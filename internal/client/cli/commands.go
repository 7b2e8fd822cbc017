package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/cryptox"
	"github.com/hildxd/chat-server/internal/filex"
	"github.com/hildxd/chat-server/internal/server/auth"
	gs "github.com/hildxd/chat-server/internal/server/grpc"
	"github.com/hildxd/chat-server/internal/server/keys"
)

const (
	privateKeyFile = "encoding.pem"
	publicKeyFile  = "decoding.pem"
)

func (a *App) keygen(args []string) error {
	fs := a.flagSet("keygen")
	out := fs.String("out", "fixtures", "directory for encoding.pem and decoding.pem")
	if err := fs.Parse(args); err != nil {
		return err
	}

	privatePEM, publicPEM, err := cryptox.GenerateEd25519PEM()
	if err != nil {
		return err
	}
	dir, err := filex.EnsureDir(*out)
	if err != nil {
		return err
	}
	if err := filex.WriteSecret(filepath.Join(dir, privateKeyFile), privatePEM); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, publicKeyFile), publicPEM, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "wrote %s and %s\n", filepath.Join(dir, privateKeyFile), filepath.Join(dir, publicKeyFile))
	return nil
}

func (a *App) signup(ctx context.Context, args []string) error {
	fs := a.flagSet("signup")
	addr := fs.String("addr", a.config.ServerAddr, "server gRPC address")
	fullName := fs.String("fullname", "", "full name")
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(fullName, "Full name"); err != nil {
		return err
	}
	if err := a.promptIfEmpty(email, "Email"); err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	in, err := structpb.NewStruct(map[string]any{"fullname": *fullName, "email": *email, "password": password})
	if err != nil {
		return err
	}

	return a.withClient(*addr, func(c *gs.AuthClient) error {
		resp, err := c.Signup(ctx, in)
		if err != nil {
			return err
		}
		return a.printToken(resp)
	})
}

func (a *App) signin(ctx context.Context, args []string) error {
	fs := a.flagSet("signin")
	addr := fs.String("addr", a.config.ServerAddr, "server gRPC address")
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(email, "Email"); err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	in, err := structpb.NewStruct(map[string]any{"email": *email, "password": password})
	if err != nil {
		return err
	}

	return a.withClient(*addr, func(c *gs.AuthClient) error {
		resp, err := c.Signin(ctx, in)
		if err != nil {
			return err
		}
		return a.printToken(resp)
	})
}

func (a *App) me(ctx context.Context, args []string) error {
	fs := a.flagSet("me")
	addr := fs.String("addr", a.config.ServerAddr, "server gRPC address")
	token := fs.String("token", "", "access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	ctx = metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, common.BearerScheme+" "+*token)

	return a.withClient(*addr, func(c *gs.AuthClient) error {
		resp, err := c.WhoAmI(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(resp.AsMap())
	})
}

// decode verifies a token against a public key without contacting the server.
func (a *App) decode(ctx context.Context, args []string) error {
	fs := a.flagSet("decode")
	pub := fs.String("pub", filepath.Join("fixtures", publicKeyFile), "public key source: file path, s3://bucket/key or inline PEM")
	token := fs.String("token", "", "token to decode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	publicPEM, err := keys.NewLoader(keys.S3Config{}).Load(ctx, *pub)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(publicPEM)
	if err != nil {
		return err
	}
	identity, err := verifier.Verify(strings.TrimSpace(*token))
	if err != nil {
		return err
	}
	return a.printJSON(identity)
}

func (a *App) withClient(addr string, call func(c *gs.AuthClient) error) error {
	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return call(gs.NewAuthClient(conn))
}

func (a *App) printToken(resp *structpb.Struct) error {
	token := resp.GetFields()["token"].GetStringValue()
	if token == "" {
		return errors.New("server returned no token")
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
