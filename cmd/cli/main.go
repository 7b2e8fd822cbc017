package main

import (
	"context"
	"log"
	"os"

	"github.com/hildxd/chat-server/internal/client/cli"
)

func main() {

	ctx := context.Background()
	app, err := cli.NewApp(os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
