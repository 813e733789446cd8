package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewRoot constructs a root Cobra command for the Podium client.
// It registers the score, board, and admin command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "podium",
		Short: "Podium client commands",
	}
	root.AddCommand(NewScoreCommand(baseURL))
	root.AddCommand(NewBoardCommand(baseURL))
	root.AddCommand(NewAdminCommand(baseURL))
	return root
}
