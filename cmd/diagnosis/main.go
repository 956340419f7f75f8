// Package main starts the career diagnosis web service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	diagnosiscmd "github.com/louisbranch/diagnosis/internal/cmd/diagnosis"
	"github.com/louisbranch/diagnosis/internal/platform/config"
)

func main() {
	cfg, err := diagnosiscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := diagnosiscmd.Run(ctx, cfg); err != nil {
		stop()
		config.Exitf("failed to serve: %v", err)
	}
}
