package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewBoardCommand constructs the `board` command group and subcommands.
func NewBoardCommand(baseURL BaseURLFunc) *cobra.Command {
	boardCmd := &cobra.Command{Use: "board", Short: "Leaderboard operations"}
	boardCmd.PersistentFlags().StringP("channel", "c", "global", "Board channel")
	boardCmd.AddCommand(
		newBoardTopCommand(baseURL),
		newBoardRankCommand(baseURL),
		newBoardWatchCommand(baseURL),
	)
	return boardCmd
}

// newBoardTopCommand constructs the `board top` subcommand.
func newBoardTopCommand(baseURL BaseURLFunc) *cobra.Command {
	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Show the current top-N standings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, _ := cmd.Flags().GetString("channel")
			n, _ := cmd.Flags().GetInt("n")
			q := url.Values{}
			if n > 0 {
				q.Set("n", strconv.Itoa(n))
			}
			var out map[string]any
			if err := doJSON(cmd.Context(), "GET", boardURL(baseURL(), channel, "top", q), nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	topCmd.Flags().Int("n", 0, "Number of entries (0 = server default)")
	return topCmd
}

// newBoardRankCommand constructs the `board rank` subcommand.
func newBoardRankCommand(baseURL BaseURLFunc) *cobra.Command {
	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Show a user's rank and score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, _ := cmd.Flags().GetString("channel")
			user, _ := cmd.Flags().GetInt64("user")
			if user <= 0 {
				return fmt.Errorf("--user is required")
			}
			q := url.Values{}
			q.Set("userId", strconv.FormatInt(user, 10))
			var out map[string]any
			if err := doJSON(cmd.Context(), "GET", boardURL(baseURL(), channel, "rank", q), nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	rankCmd.Flags().Int64("user", 0, "User id")
	return rankCmd
}

// newBoardWatchCommand constructs the `board watch` subcommand. It follows
// the channel's SSE notification stream and prints one JSON line per event.
func newBoardWatchCommand(baseURL BaseURLFunc) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow top-N change notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, _ := cmd.Flags().GetString("channel")
			lastSeen, _ := cmd.Flags().GetUint64("last-seen")
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")

			q := url.Values{}
			if filter != "" {
				q.Set("filter", filter)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), "GET", boardURL(baseURL(), channel, "subscribe", q), nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "text/event-stream")
			if lastSeen > 0 {
				req.Header.Set("Last-Event-ID", strconv.FormatUint(lastSeen, 10))
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("subscribe failed: %s", resp.Status)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			sc := bufio.NewScanner(resp.Body)
			sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
			var seq uint64
			seen := 0
			for sc.Scan() {
				line := sc.Text()
				switch {
				case strings.HasPrefix(line, "id: "):
					seq, _ = strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
				case strings.HasPrefix(line, "data: "):
					var payload any
					if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
						continue
					}
					_ = enc.Encode(map[string]any{"seq": seq, "notification": payload})
					seen++
					if limit > 0 && seen >= limit {
						return nil
					}
				}
			}
			return sc.Err()
		},
	}
	watchCmd.Flags().Uint64("last-seen", 0, "Resume after this notification sequence")
	watchCmd.Flags().String("filter", "", "CEL filter (server-side)")
	watchCmd.Flags().Int("limit", 0, "Stop after N notifications (0 = infinite)")
	return watchCmd
}
