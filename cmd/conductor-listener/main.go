package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/conductor/pkg/cmd"
	"github.com/dukex/conductor/pkg/listener"
	"github.com/dukex/conductor/pkg/log"
	"github.com/dukex/conductor/pkg/tracker"
)

func main() {
	command := &cli.Command{
		Name:                  "conductor-listener",
		EnableShellCompletion: true,
		Usage:                 "Consume request notifications and run the reconciliation sweep",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listener-id",
				Aliases: []string{"id"},
				Usage:   "Custom listener ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("LISTENER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "notify-bus",
				Usage:    "Notification bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("NOTIFY_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Reconciliation sweep cadence",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "poll-window",
				Usage:   "Lookback window for the recently-resolved resync",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("POLL_WINDOW"),
			},
			&cli.IntFlag{
				Name:    "due-limit",
				Usage:   "Maximum due tickets fetched per sweep",
				Value:   100,
				Sources: cli.EnvVars("DUE_LIMIT"),
			},
			&cli.StringFlag{
				Name:    "follow-up",
				Usage:   "Follow-up scheduler for resolved requests (log, none)",
				Value:   "log",
				Sources: cli.EnvVars("FOLLOW_UP"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			listenerID := command.String("listener-id")
			if listenerID == "" {
				listenerID = "listener-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("conductor-listener").With("listenerId", listenerID)
			logger.InfoContext(ctx, "Initializing Conductor Listener")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus := cmd.NewBus(command.String("notify-bus"), logger)
			defer func() {
				err := bus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close notification bus", "error", err)
				}
			}()

			emitter := cmd.NewEmitter(ctx, logger, "conductor-listener")

			followUp := cmd.NewFollowUpScheduler(command.String("follow-up"), logger)
			trk := tracker.NewTracker(persistence.RequestRepository(), bus, emitter, logger, followUp)

			lst := listener.NewListener(bus, trk, emitter, logger, listener.Config{
				PollInterval: command.Duration("poll-interval"),
				PollWindow:   command.Duration("poll-window"),
				DueLimit:     command.Int("due-limit"),
			})

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := lst.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start listener", "error", err)

				return err
			}

			<-ctx.Done()

			logger.Info("Shutting down listener")
			lst.Stop()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
