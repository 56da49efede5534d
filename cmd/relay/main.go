package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/relay"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := log.New(log.ParseLevel(*level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()

	srv := relay.NewServer(*addr, logger)
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "relay exited with error:", err)
		os.Exit(1)
	}
}
