package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yuval-kahan/Bookmarks-Search/internal/prompt"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show or change the AI search prompt template",
}

var promptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the prompt template in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		tpl, err := env.Settings.Prompt(cmd.Context())
		if err != nil {
			return err
		}
		if tpl == "" {
			tpl = prompt.DefaultTemplate
		}
		fmt.Fprintln(cmd.OutOrStdout(), tpl)
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set <file|->",
	Short: "Save a custom template read from a file or stdin",
	Long:  "Save a custom template. It must contain " + prompt.SearchPlaceholder + "; the bookmark list goes where " + prompt.BookmarksPlaceholder + " appears, or before the template when it is absent.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return eris.Wrap(err, "read template")
		}

		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Settings.SavePrompt(cmd.Context(), string(data)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Prompt saved.")
		return nil
	},
}

var promptResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default template",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Settings.ResetPrompt(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Prompt reset to default.")
		return nil
	},
}

func init() {
	promptCmd.AddCommand(promptShowCmd, promptSetCmd, promptResetCmd)
	rootCmd.AddCommand(promptCmd)
}
