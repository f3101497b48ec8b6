package main

import (
	"github.com/spf13/cobra"

	"github.com/yuval-kahan/Bookmarks-Search/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve bookmark search as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Bookmarks.Watch {
			if err := env.Library.Watch(cmd.Context()); err != nil {
				return err
			}
		}
		return mcpserver.Serve(mcpserver.New(env.Search, env.History, version))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
