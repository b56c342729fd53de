package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/d1nch8g/yukitts/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Run(ctx, "yukitts", os.Args[1:], app.Deps{Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}
