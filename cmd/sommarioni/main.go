// Command sommarioni joins the Sommarioni land registry to its parcel
// geometries and serves the derived map views.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sommarioni/sommarioni/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
