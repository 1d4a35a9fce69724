// Command uploadq uploads local files through the upload queue: images are
// normalized and re-encoded, everything is sent with bounded concurrency to
// an HTTP endpoint or straight into object storage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"uploadq/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "uploadq:", err)
		stop()
		os.Exit(1)
	}
}
