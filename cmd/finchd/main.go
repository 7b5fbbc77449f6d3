// Package main implements finchd, a headless harness that stands in
// for the messenger GUI: it runs the per-frame polling loop against a
// simulated backend and optionally serves local diagnostics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finchmsg/finch-core/internal/api"
	"github.com/finchmsg/finch-core/internal/config"
	"github.com/finchmsg/finch-core/internal/domain"
	"github.com/finchmsg/finch-core/internal/platform/logger"
	"github.com/finchmsg/finch-core/internal/platform/memstore"
	"github.com/finchmsg/finch-core/internal/platform/namecache"
	"github.com/finchmsg/finch-core/internal/platform/simbackend"
	"github.com/finchmsg/finch-core/internal/service"
)

const selfAddress = "finch-self"

func main() {
	if err := run(); err != nil {
		log.Fatalf("finchd failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"debug_port", cfg.Server.DebugPort,
		"send_capacity", cfg.Queue.SendCapacity,
		"frame_interval", cfg.Poll.FrameInterval)

	names, err := namecache.New(cfg.Cache.NameMaxBytes, cfg.Cache.NameTTL)
	if err != nil {
		return fmt.Errorf("failed to create name cache: %w", err)
	}
	defer names.Close()

	backend := simbackend.New(simbackend.Config{
		Latency:     50 * time.Millisecond,
		FailEvery:   7,
		EchoReplies: true,
	}, appLogger)
	seedBackend(backend)

	messenger := service.NewMessenger(
		selfAddress,
		memstore.NewMessageStore(),
		names,
		backend.Backends(),
		cfg.Queue.SendCapacity,
		appLogger,
	)
	defer messenger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.DebugPort > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Server.DebugPort),
			Handler:           api.NewRouter(messenger, appLogger),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			appLogger.Info("diagnostics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("diagnostics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return frameLoop(ctx, cfg.Poll, messenger, appLogger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	appLogger.Info("finchd stopped")
	return nil
}

// seedBackend gives the simulation a couple of published peers and some
// stored history so the harness has something to converse with.
func seedBackend(backend *simbackend.Backend) {
	backend.Register("finch-alice", "Alice")
	backend.Register("finch-bob", "Bob")

	now := time.Now().UTC()
	backend.SeedHistory("finch-alice", []service.BackendMessage{
		{
			ConversationID: "finch-alice",
			Sender:         "finch-alice",
			Content:        "anyone there?",
			Timestamp:      now.Add(-time.Hour),
		},
		{
			ConversationID: "finch-alice",
			Sender:         selfAddress,
			Content:        "just set this up",
			Timestamp:      now.Add(-50 * time.Minute),
			Outgoing:       true,
			Delivered:      true,
		},
	})
}

// frameLoop plays the role of the GUI's render loop: every frame it
// calls Tick to apply completed background work, and on a slower cadence
// it starts polls and sends simulated user traffic. It never blocks on
// backend calls.
func frameLoop(ctx context.Context, cfg config.PollConfig, m *service.Messenger, logger *slog.Logger) error {
	const activeConversation = "finch-alice"

	frame := time.NewTicker(cfg.FrameInterval)
	defer frame.Stop()
	slow := time.NewTicker(cfg.MessageInterval)
	defer slow.Stop()

	m.StartIdentityCreate()

	bootstrapped := false
	sends := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-frame.C:
			m.Tick()

			if !bootstrapped && m.IdentityReady() {
				bootstrapped = true
				m.StartIdentityPublish()
				m.StartContactSync()
				m.StartConversationLoad(activeConversation)
			}

		case <-slow.C:
			if !bootstrapped {
				continue
			}

			m.StartMessagePoll(activeConversation)

			sends++
			content := fmt.Sprintf("harness message %d", sends)
			if _, err := m.Send(activeConversation, content); err != nil {
				logger.Warn("send refused", "error", err)
			}

			for _, msg := range m.Messages(activeConversation) {
				if msg.Status == domain.DeliveryStatusFailed {
					if err := m.Retry(activeConversation, msg.ID); err != nil {
						logger.Debug("retry refused", "message_id", msg.ID, "error", err)
					}
				}
			}

			logger.Info("conversation state",
				"conversation", m.DisplayName(activeConversation),
				"messages", len(m.Messages(activeConversation)),
				"queue_size", m.QueueSize(),
				"contacts", len(m.Contacts()))
		}
	}
}
