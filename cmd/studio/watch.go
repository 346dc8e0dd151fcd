package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyvo/studio/pkg/relay"
	"github.com/vyvo/studio/pkg/sse"
)

var (
	gatewayFlag   string
	accessKeyFlag string
	followFlag    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <task_id>",
	Short: "Stream the updates of a generation from a running gateway",
	Long: `Stream the updates of a generation from a running gateway.

By default the gateway polls the task and streams each update. With --follow
the command only listens to updates published by another poller.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&gatewayFlag, "gateway", "http://localhost:8080", "Base URL of the studio gateway")
	watchCmd.Flags().StringVar(&accessKeyFlag, "access-key", "", "Gateway access key (defaults to the configured access_key)")
	watchCmd.Flags().BoolVar(&followFlag, "follow", false, "Listen to relayed updates instead of polling")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suffix := "events"
	if followFlag {
		suffix = "watch"
	}
	endpoint := fmt.Sprintf("%s/v1/generations/%s/%s",
		strings.TrimRight(gatewayFlag, "/"), url.PathEscape(args[0]), suffix)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create watch request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	key := accessKeyFlag
	if key == "" {
		key = cfg.AccessKey
	}
	if key != "" {
		req.Header.Set("Authorization", "Key "+key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := cmd.OutOrStdout()
	err = sse.ReadEvents(resp.Body, func(payload json.RawMessage) error {
		var ev relay.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		printEvent(out, ev)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printEvent(w io.Writer, ev relay.Event) {
	line := fmt.Sprintf("[%d] %s", ev.Attempt, ev.Message)
	if ev.Status != "" {
		line += " (" + string(ev.Status) + ")"
	}
	fmt.Fprintln(w, line)
	if ev.Artifact != "" {
		fmt.Fprintln(w, ev.Artifact)
	}
	if ev.Error != "" {
		logger.Debug().Str("task_id", ev.TaskID).Str("error", ev.Error).Msg("generation error")
	}
}
