// Marcus - voice assistant with tool use over the Gemini Live API.
// Runs the conversation engine plus a local web dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/AConteh33/go-marcus/internal/config"
	"github.com/AConteh33/go-marcus/internal/log"
	"github.com/AConteh33/go-marcus/pkg/assistant"
	"github.com/AConteh33/go-marcus/pkg/web"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	port := pflag.String("port", config.DashboardPort(), "Dashboard port")
	model := pflag.String("model", config.DefaultModel, "Gemini Live model")
	voice := pflag.String("voice", config.DefaultVoice, "Assistant voice name")
	dataDir := pflag.String("data-dir", config.DataDir(), "Directory for transcripts and entities")
	bridgeURL := pflag.String("bridge-url", config.BridgeURL(), "Remote command bridge URL (optional)")
	autoConnect := pflag.Bool("connect", false, "Start a conversation immediately")
	pflag.Parse()

	log.Init(*logLevel)

	apiKey := config.GoogleAPIKey()
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GOOGLE_API_KEY is not set")
		os.Exit(1)
	}

	app, err := assistant.New(assistant.Config{
		APIKey:    apiKey,
		Model:     *model,
		Voice:     *voice,
		DataDir:   *dataDir,
		BridgeURL: *bridgeURL,
	})
	if err != nil {
		log.Error("failed to start assistant", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := web.NewServer(*port, app)
	app.AttachEvents(server.SessionEvents())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		app.Disconnect()
		return server.Shutdown()
	})

	if *autoConnect {
		if err := app.Connect(ctx); err != nil {
			log.Warn("initial connect failed", "error", err)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("goodbye")
}
