package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/journal-submission-api/internal/notify"
	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var submission int64

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream submission status changes as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}

			endpoint := api.WebsocketURL()
			if submission > 0 {
				endpoint += "?submission=" + strconv.FormatInt(submission, 10)
			}
			header := http.Header{}
			if cfg.Token != "" {
				header.Set("Authorization", "Bearer "+cfg.Token)
			}

			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), endpoint, header)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", endpoint, err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadlineSoon())
				conn.Close()
			}()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", endpoint)

			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return fmt.Errorf("read event: %w", err)
				}
				var ev notify.Event
				if err := json.Unmarshal(data, &ev); err != nil || ev.SubmissionID == 0 {
					continue
				}
				fmt.Fprintln(out, renderEvent(ev, colorize))
			}
		},
	}
	cmd.Flags().Int64Var(&submission, "submission", 0, "Only events for this submission")
	return cmd
}

func renderEvent(ev notify.Event, colorize bool) string {
	prefix := fmt.Sprintf("%s  #%d", formatTime(ev.At), ev.SubmissionID)
	switch ev.Type {
	case notify.EventDeleted:
		return prefix + "  deleted"
	case notify.EventUpdated:
		return prefix + "  metadata updated"
	}
	from := "-"
	if ev.From != "" {
		from = renderLabel(ev.From, colorize)
	}
	return fmt.Sprintf("%s  %s -> %s", prefix, from, renderLabel(ev.To, colorize))
}
