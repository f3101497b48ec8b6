package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/llm"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

var providersFlags struct {
	ollamaURL string
	model     string
	key       string
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage LLM providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosted providers and the saved selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initBase(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		keys, err := env.Settings.APIKeys(ctx)
		if err != nil {
			return err
		}
		sel, err := env.Settings.Provider(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDEFAULT MODEL\tKEY\tSELECTED")
		for _, p := range env.Gateway.Providers() {
			key := ""
			if keys[p.ID] != "" {
				key = "set"
			}
			selected := ""
			if p.ID == sel.Provider {
				selected = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.DefaultModel, key, selected)
		}
		if sel.OllamaURL != "" || sel.OllamaModel != "" {
			fmt.Fprintf(tw, "ollama\tOllama (local)\t%s\t\t%s\n", sel.OllamaModel, sel.OllamaURL)
		}
		return tw.Flush()
	},
}

var providersModelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List local Ollama models, or saved custom models of a provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initBase(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			models, err := env.Settings.CustomModels(ctx, args[0])
			if err != nil {
				return err
			}
			if p, ok := env.Gateway.Provider(args[0]); ok && p.DefaultModel != "" {
				fmt.Fprintf(out, "%s (default)\n", p.DefaultModel)
			}
			for _, m := range models {
				fmt.Fprintln(out, m)
			}
			return nil
		}

		base := providersFlags.ollamaURL
		if base == "" {
			base = cfg.LLM.OllamaURL
		}
		models, err := env.Gateway.ListLocalModels(ctx, base)
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Fprintf(out, "%s\t%.1f GB\n", m.Name, float64(m.Size)/1e9)
		}
		return nil
	},
}

var providersVerifyCmd = &cobra.Command{
	Use:   "verify <provider|ollama>",
	Short: "Send a short test prompt and remember that the provider works",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initBase(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		pc, err := verifyConfig(cmd, env, args[0])
		if err != nil {
			return err
		}
		if err := env.Gateway.Verify(ctx, pc); err != nil {
			return err
		}

		if pc.Kind == llm.KindHosted {
			if err := env.Settings.MarkVerified(ctx, pc.Provider, pc.Model); err != nil {
				zap.L().Warn("save verification", zap.Error(err))
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s works.\n", args[0])
		return nil
	},
}

func verifyConfig(cmd *cobra.Command, env *appEnv, id string) (llm.ProviderConfig, error) {
	if id == "ollama" {
		url := providersFlags.ollamaURL
		if url == "" {
			url = cfg.LLM.OllamaURL
		}
		return llm.ProviderConfig{Kind: llm.KindLocal, BaseURL: url, Model: providersFlags.model}, nil
	}

	p, ok := env.Gateway.Provider(id)
	if !ok {
		return llm.ProviderConfig{}, eris.Wrapf(llm.ErrUnknownProvider, "provider %q", id)
	}
	key := providersFlags.key
	if key == "" {
		var err error
		if key, err = env.Settings.APIKey(cmd.Context(), id); err != nil {
			return llm.ProviderConfig{}, err
		}
	}
	m := providersFlags.model
	if m == "" {
		m = p.DefaultModel
	}
	return llm.ProviderConfig{Kind: llm.KindHosted, Provider: id, Model: m, APIKey: key}, nil
}

var providersUseCmd = &cobra.Command{
	Use:   "use <provider|ollama>",
	Short: "Select the provider for ai searches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initBase(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sel, err := env.Settings.Provider(ctx)
		if err != nil {
			return err
		}
		if args[0] == "ollama" {
			sel = model.ProviderSelection{OllamaURL: providersFlags.ollamaURL, OllamaModel: providersFlags.model}
			if sel.OllamaModel == "" {
				sel.OllamaModel = "llama2"
			}
		} else {
			if _, ok := env.Gateway.Provider(args[0]); !ok {
				return eris.Wrapf(llm.ErrUnknownProvider, "provider %q", args[0])
			}
			sel.Provider, sel.Model = args[0], providersFlags.model
			if providersFlags.key != "" {
				if err := env.Settings.SetAPIKey(ctx, args[0], providersFlags.key); err != nil {
					return err
				}
			}
			if sel.Model != "" {
				if err := env.Settings.AddCustomModel(ctx, args[0], sel.Model); err != nil {
					return err
				}
			}
		}
		if err := env.Settings.SaveProvider(ctx, sel); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Using %s.\n", args[0])
		return nil
	},
}

func init() {
	providersModelsCmd.Flags().StringVar(&providersFlags.ollamaURL, "ollama-url", "", "Ollama server (default http://localhost:11434)")
	for _, c := range []*cobra.Command{providersVerifyCmd, providersUseCmd} {
		c.Flags().StringVar(&providersFlags.ollamaURL, "ollama-url", "", "Ollama server (default http://localhost:11434)")
		c.Flags().StringVar(&providersFlags.model, "model", "", "model name")
		c.Flags().StringVar(&providersFlags.key, "key", "", "API key (saved by use)")
	}

	providersCmd.AddCommand(providersListCmd, providersModelsCmd, providersVerifyCmd, providersUseCmd)
	rootCmd.AddCommand(providersCmd)
}
