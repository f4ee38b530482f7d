/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/farmtrack/apiserver/config"
	"github.com/farmtrack/apiserver/internal/mq"
	"github.com/farmtrack/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd groups commands that work with the task event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log task assignment events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			if errors.Is(err, mq.ErrDisabled) {
				return errors.New("MQ_DRIVER must be set to tail events")
			}
			return err
		}
		defer queue.Close()

		logger.Info("tailing task events", "channel", services.TaskAssignedChannel, "driver", cfg.MQ.Driver)
		err = queue.Subscribe(ctx, services.TaskAssignedChannel, func(ctx context.Context, msg mq.Message) error {
			var event services.TaskAssignedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Undecodable payloads are acked so they do not loop forever.
				logger.WarnContext(ctx, "skip malformed event", "message_id", msg.ID, "error", err)
				return nil
			}
			logger.InfoContext(ctx, "task assigned",
				"event_id", event.EventID,
				"task_id", event.TaskID,
				"operator_id", event.OperatorID,
				"kind", event.Kind,
				"due_at", event.DueAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
