package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/olivier-w/earshot/internal/cli"
	"github.com/olivier-w/earshot/internal/logging"
)

var version = "0.1.0"

func main() {
	var c cli.CLI
	parser, err := cli.New(&c, version)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}

	log, closer, err := logging.New(c.LogFile, c.LogLevel)
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&cli.Env{Ctx: ctx, Log: log, Stdout: os.Stdout}); err != nil {
		log.WithError(err).Error("command failed")
		cli.PrintError(os.Stderr, err.Error())
		closer.Close()
		os.Exit(1)
	}
}
