package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/conductor/pkg/cmd"
	"github.com/dukex/conductor/pkg/log"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "conductor-api",
		Usage:                 "Manage request tickets and execute workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "notify-bus",
				Usage:   "Notification bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("NOTIFY_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for approval tokens (in-memory gate when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
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

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Conductor API")

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

			registry := cmd.NewRegistry(logger)
			gate := cmd.NewGate(command.String("redis-url"))
			followUp := cmd.NewFollowUpScheduler(command.String("follow-up"), logger)

			api := NewAPI(logger, persistence, bus, registry, gate, followUp)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
