package client

import (
	"github.com/spf13/cobra"
)

// NewAdminCommand constructs the `admin` command group and subcommands.
func NewAdminCommand(baseURL BaseURLFunc) *cobra.Command {
	adminCmd := &cobra.Command{Use: "admin", Short: "Administrative operations"}
	adminCmd.AddCommand(newAdminRecoverCommand(baseURL))
	return adminCmd
}

// newAdminRecoverCommand constructs the `admin recover` subcommand.
func newAdminRecoverCommand(baseURL BaseURLFunc) *cobra.Command {
	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Rebuild the rank cache from the durable ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				Scanned int64 `json:"scanned"`
				Applied int64 `json:"applied"`
				TookMs  int64 `json:"tookMs"`
			}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/admin/recover", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	return recoverCmd
}
