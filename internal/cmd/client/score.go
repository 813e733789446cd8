package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewScoreCommand constructs the `score` command group and subcommands.
func NewScoreCommand(baseURL BaseURLFunc) *cobra.Command {
	scoreCmd := &cobra.Command{Use: "score", Short: "Score operations"}
	scoreCmd.AddCommand(newScoreSubmitCommand(baseURL))
	return scoreCmd
}

// newScoreSubmitCommand constructs the `score submit` subcommand.
func newScoreSubmitCommand(baseURL BaseURLFunc) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a score for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetInt64("user")
			score, _ := cmd.Flags().GetInt64("score")
			if user <= 0 {
				return fmt.Errorf("--user is required")
			}
			var out struct {
				Accepted bool   `json:"accepted"`
				Version  uint64 `json:"version"`
				Score    int64  `json:"score"`
			}
			body := map[string]int64{"userId": user, "score": score}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/scores", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	submitCmd.Flags().Int64("user", 0, "User id")
	submitCmd.Flags().Int64("score", 0, "Score value")
	return submitCmd
}
