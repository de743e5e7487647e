// Command captchactl is the operator and relying-party CLI for a GridCaptcha
// server: it bootstraps certificates, issues operator credentials, and
// calls the verify and validate endpoints.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
