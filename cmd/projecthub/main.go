package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthub"
)

func main() {
	// Cancelled on SIGINT or SIGTERM, which shuts the server down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := projecthub.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
