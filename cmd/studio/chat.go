package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyvo/studio/pkg/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with the configured model.
Type a question and press Enter. Type "history" to list the transcript with
turn ids, and "exit" or send EOF to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	client := chat.NewClient(cfg.ChatOptions())
	if !client.Configured() {
		return chat.ErrMissingAPIKey
	}
	session := chat.NewSession(client)
	return chatLoop(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chatLoop(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	for _, turn := range session.Turns() {
		fmt.Fprintf(out, "assistant> %s\n", turn.Content)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			printTranscript(out, session.Turns())
			continue
		}

		turn, err := session.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Debug().Err(err).Msg("chat request failed")
			fmt.Fprintf(out, "error> %s\n", chat.NewResponse("", err).Error)
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", turn.Content)
	}
}

func printTranscript(w io.Writer, turns []chat.Turn) {
	for _, turn := range turns {
		id := turn.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s %s %-9s %s\n", id, turn.CreatedAt.Local().Format("15:04:05"), turn.Role, turn.Content)
	}
}
