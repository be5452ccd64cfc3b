package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BLAZED-sh/xmlvalues/internal/config"
	"github.com/BLAZED-sh/xmlvalues/pkg/service"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	// Basic options
	var listenSocket, socketPerms string
	// Performance options
	var bufferSize, maxRead, maxDocument, maxConnections int
	// Debug options
	var debugSignal int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve value extraction on a unix socket",
		Long: `Listen on a unix socket for NUL terminated XML documents and answer each one
with a JSON line: {"values":[...]} or {"error":"..."}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = listenSocket
			}
			if flags.Changed("socket-perms") {
				cfg.SocketPerms = socketPerms
			}
			if flags.Changed("buffer") {
				cfg.BufferSize = bufferSize
			}
			if flags.Changed("max-read") {
				cfg.MaxRead = maxRead
			}
			if flags.Changed("max-document") {
				cfg.MaxDocument = maxDocument
			}
			if flags.Changed("max-connections") {
				cfg.MaxConnections = maxConnections
			}
			if flags.Changed("debug-signal") {
				cfg.DebugSignal = debugSignal
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listenSocket, "listen", config.DefaultListen, "Unix socket path to listen on")
	flags.StringVar(&socketPerms, "socket-perms", config.DefaultSocketPerms, "Unix socket permissions in octal (e.g. 0666)")
	flags.IntVar(&bufferSize, "buffer", config.DefaultBufferSize, "Initial buffer size for the document reader")
	flags.IntVar(&maxRead, "max-read", config.DefaultMaxRead, "Maximum read size per operation")
	flags.IntVar(&maxDocument, "max-document", config.DefaultMaxDocument, "Maximum size of a single document in bytes")
	flags.IntVar(&maxConnections, "max-connections", config.DefaultMaxConnections, "Maximum number of concurrent connections")
	flags.IntVar(&debugSignal, "debug-signal", int(syscall.SIGUSR1), "Signal number to use for dumping debug info (default: SIGUSR1)")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	server, err := service.NewValuesServer(service.Options{
		BufferSize:      cfg.BufferSize,
		MaxRead:         cfg.MaxRead,
		MaxDocumentSize: cfg.MaxDocument,
		MaxConnections:  cfg.MaxConnections,
		Logger:          log.Logger,
	})
	if err != nil {
		return err
	}

	// Remove socket file if it exists
	if _, err := os.Stat(cfg.Listen); err == nil {
		if err := os.Remove(cfg.Listen); err != nil {
			log.Error().Err(err).Str("socket", cfg.Listen).Msg("Failed to remove existing socket file")
			return err
		}
		log.Debug().Str("socket", cfg.Listen).Msg("Removed existing socket file")
	}

	if err := server.AddUnixSocketListener(ctx, cfg.Listen); err != nil {
		log.Error().Err(err).Str("socket", cfg.Listen).Msg("Failed to add Unix socket listener")
		return err
	}

	// Validate already checked the format
	socketMode, _ := cfg.SocketMode()
	if err := os.Chmod(cfg.Listen, socketMode); err != nil {
		log.Warn().Err(err).Str("socket", cfg.Listen).Uint32("mode", uint32(socketMode)).Msg("Failed to set socket permissions")
	}

	if err := server.Listen(); err != nil {
		return err
	}
	log.Info().
		Str("listen", cfg.Listen).
		Int("buffer_size", cfg.BufferSize).
		Int("max_read", cfg.MaxRead).
		Int("max_document_size", cfg.MaxDocument).
		Int("max_connections", cfg.MaxConnections).
		Str("version", version).
		Msg("XML values server started")

	sigChan := make(chan os.Signal, 1)
	debugSigChan := make(chan os.Signal, 1)

	debugSig := syscall.Signal(cfg.DebugSignal)
	signal.Notify(debugSigChan, debugSig)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(debugSigChan)
	defer signal.Stop(sigChan)
	log.Info().Int("signal", cfg.DebugSignal).Msg("Debug signal registered - send this signal to dump debug info")

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-debugSigChan:
				log.Info().Int("signal", cfg.DebugSignal).Msg("Received debug signal - dumping debug information")
				server.DumpDebugInfo()

				buf := make([]byte, 1<<20)
				stackLen := runtime.Stack(buf, true)
				log.Info().Msgf("=== GOROUTINE DUMP ===\n%s", buf[:stackLen])
			case <-done:
				return
			}
		}
	}()

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down...")

	server.Shutdown()

	// Closing the listener usually unlinks the socket already
	if err := os.Remove(cfg.Listen); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("socket", cfg.Listen).Msg("Failed to remove socket file on shutdown")
	} else {
		log.Debug().Str("socket", cfg.Listen).Msg("Removed socket file")
	}
	return nil
}
