package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/adapters/hasher"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash an admin token for admin.token_hash",
	Long: `Print the bcrypt hash of an admin bearer token. Put the hash in
admin.token_hash (or APPHOST_ADMIN_TOKEN_HASH) and keep the token itself
out of the config file.

Examples:
  apphost hash-token "$(openssl rand -hex 32)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hasher.NewBcrypt(0).Hash(args[0])
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashTokenCmd)
}
