// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/conductor/pkg/channels/gochannel"
	"github.com/dukex/conductor/pkg/channels/kafka"
	"github.com/dukex/conductor/pkg/notify"
)

// NewBus creates the notification bus for the given provider. The gochannel
// provider is in-process only and suited to development and tests.
func NewBus(provider string, logger *slog.Logger) notify.Bus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "conductor")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return notify.NewWatermillBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return notify.NewWatermillBus(pub, sub)
	default:
		panic("Unsupported notification bus provider: " + provider)
	}
}
