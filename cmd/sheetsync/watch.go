package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/events"
	"github.com/alfredjeanlab/sheetsync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow sync events as they are published",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := cfg.NATSURL
		if cmd.Flags().Changed("nats") {
			url, _ = cmd.Flags().GetString("nats")
		}
		if url == "" {
			return &configError{errors.New("watch needs --nats or SHEETSYNC_NATS_URL")}
		}

		sub, err := events.NewNATSSubscriber(url,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(events.TopicAll)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Printf("{\"topic\":%q,\"event\":%s}\n", msg.Topic, msg.Data)
					continue
				}
				fmt.Println(formatEvent(msg, time.Now()))
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL (default $SHEETSYNC_NATS_URL)")
}

// formatEvent renders one bus message as a single line.
func formatEvent(msg events.Message, now time.Time) string {
	stamp := ui.RenderMuted(now.Format("15:04:05"))
	topic := strings.TrimPrefix(msg.Topic, events.TopicPrefix)

	var line string
	switch msg.Topic {
	case events.TopicRunStarted:
		var e events.RunStarted
		if json.Unmarshal(msg.Data, &e) == nil {
			line = fmt.Sprintf("%s %s", ui.RenderAccent(e.RunID), e.Command)
			if e.Mode != "" {
				line += " mode=" + string(e.Mode)
			}
		}
	case events.TopicRunFinished:
		var e events.RunFinished
		if json.Unmarshal(msg.Data, &e) == nil {
			line = fmt.Sprintf("%s ok=%d failed=%d skipped=%d exit=%s",
				ui.RenderAccent(e.RunID), e.OK, e.Failed, e.Skipped, ui.RenderExitCode(e.ExitCode))
		}
	case events.TopicUnitDone, events.TopicUnitFailed:
		var e events.UnitEvent
		if json.Unmarshal(msg.Data, &e) == nil {
			u := e.Result
			line = fmt.Sprintf("%s %s/%s %s", ui.RenderAccent(e.RunID), u.Phase, u.Unit, ui.RenderStatus(u.Status, u.Fatal))
			switch {
			case u.Error != "":
				line += ": " + u.Error
			case u.Detail != "":
				line += ": " + u.Detail
			}
		}
	case events.TopicMasterAdvanced:
		var e events.MasterAdvanced
		if json.Unmarshal(msg.Data, &e) == nil {
			line = fmt.Sprintf("%s %s %s -> %s (%s)", ui.RenderAccent(e.RunID), e.Tab, e.From, e.To, e.Header)
		}
	}
	if line == "" {
		line = string(msg.Data)
	}
	return fmt.Sprintf("%s %-15s %s", stamp, topic, line)
}
