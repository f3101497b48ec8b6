package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yuval-kahan/Bookmarks-Search/internal/deepsearch"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/progress"
	"github.com/yuval-kahan/Bookmarks-Search/internal/scope"
	"github.com/yuval-kahan/Bookmarks-Search/internal/search"
)

var searchFlags struct {
	mode           string
	deep           bool
	noInstructions bool
	folders        []string
	ids            []string
	provider       string
	model          string
	ollamaURL      string
	ollamaModel    string
	exchange       bool
	raw            bool
	jsonOut        bool
}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search bookmarks",
	Long:  "Search bookmarks. Modes: exact (every word must appear), fuzzy (scored character match) and ai (an LLM picks the matches). Ctrl-C during an ai search stops after the current batch and prints what was found.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := search.Request{
			Query: strings.Join(args, " "),
			Mode:  model.SearchMode(searchFlags.mode),
			Deep:  searchFlags.deep,
			Raw:   searchFlags.noInstructions,
		}
		if len(searchFlags.folders) > 0 || len(searchFlags.ids) > 0 {
			req.Scope = &scope.Selection{Folders: searchFlags.folders, IDs: searchFlags.ids}
		}
		if searchFlags.provider != "" || searchFlags.ollamaURL != "" || searchFlags.ollamaModel != "" {
			req.Provider = &model.ProviderSelection{
				Provider:    searchFlags.provider,
				Model:       searchFlags.model,
				OllamaURL:   searchFlags.ollamaURL,
				OllamaModel: searchFlags.ollamaModel,
			}
		}

		line := progress.New()
		req.Progress = func(u search.Update) {
			line.Set(progressLabel(u), u.Percent, progressDetail(u))
		}
		res, err := env.Search.Search(ctx, req)
		line.Done()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if searchFlags.jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return printMarkdown(out, formatResult(res, searchFlags.exchange), searchFlags.raw)
	},
}

func progressLabel(u search.Update) string {
	if u.Stage == search.StageEnrich {
		return "Reading pages"
	}
	return "Searching"
}

func progressDetail(u search.Update) string {
	switch {
	case u.Enrich != nil && u.Enrich.Phase == deepsearch.PhaseDownloading:
		return u.Enrich.URL
	case u.Enrich != nil:
		return fmt.Sprintf("%d/%d pages (%d cached)", u.Enrich.Processed, u.Enrich.Total, u.Enrich.Cached)
	case u.Batch != nil:
		return fmt.Sprintf("batch %d/%d", u.Batch.Current, u.Batch.Total)
	}
	return ""
}

// formatResult renders a result as markdown. With exchange set the prompts
// and replies of every batch are appended.
func formatResult(res *model.Result, exchange bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %d result(s) for \"%s\" (%s)\n\n", len(res.Items), res.Query, res.Mode)
	for _, it := range res.Items {
		title := it.Title
		if title == "" {
			title = it.URL
		}
		fmt.Fprintf(&sb, "- [%s](%s)", title, it.URL)
		if it.GroupPath != "" {
			fmt.Fprintf(&sb, " *%s*", it.GroupPath)
		}
		sb.WriteByte('\n')
	}

	d := res.Diagnostics
	if d == nil {
		return sb.String()
	}
	if d.Cancelled {
		sb.WriteString("\n> Search cancelled, results are partial.\n")
	}
	if failed := d.Failed(); len(failed) > 0 && !exchange {
		fmt.Fprintf(&sb, "\n> %d of %d batches failed; rerun with --exchange for details.\n", len(failed), d.Batches)
	}
	if !exchange {
		return sb.String()
	}

	if e := d.Enrichment; e != nil {
		fmt.Fprintf(&sb, "\n> Deep search: %d pages, %d from cache, %d downloaded, %d failed.\n",
			e.Pages, e.Cached, e.Downloaded, e.Failed)
	}
	if d.Batches == 0 {
		sb.WriteString("\n## Sent\n\n```\n" + d.Sent + "\n```\n\n## Received\n\n```\n" + d.Received + "\n```\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\n## Exchange: %d batches of up to %d items (%d items)\n", d.Batches, d.BatchSize, d.TotalItems)
	for _, bd := range d.BatchDetails {
		fmt.Fprintf(&sb, "\n### Batch %d\n\n```\n%s\n```\n\n", bd.BatchNumber, bd.Sent)
		if bd.Error != "" {
			fmt.Fprintf(&sb, "**Error:** %s\n", bd.Error)
			continue
		}
		fmt.Fprintf(&sb, "Reply: `%s`\n", bd.Received)
	}
	return sb.String()
}

// printMarkdown renders md with glamour on a terminal, raw otherwise.
func printMarkdown(w io.Writer, md string, raw bool) error {
	if !raw && w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, err := glamour.Render(md, "dark"); err == nil {
			_, err = fmt.Fprint(w, rendered)
			return err
		}
	}
	_, err := fmt.Fprint(w, md)
	return err
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchFlags.mode, "mode", "m", string(model.SearchModeExact), "search mode: exact, fuzzy or ai")
	f.BoolVar(&searchFlags.deep, "deep", false, "read the bookmarked pages before an ai search")
	f.BoolVar(&searchFlags.noInstructions, "no-instructions", false, "send only the bookmark list and the query")
	f.StringSliceVar(&searchFlags.folders, "folder", nil, "limit to a folder path, e.g. \"Bookmarks bar > Rust\" (repeatable)")
	f.StringSliceVar(&searchFlags.ids, "id", nil, "limit to bookmark ids (repeatable)")
	f.StringVar(&searchFlags.provider, "provider", "", "hosted provider id (overrides the saved selection)")
	f.StringVar(&searchFlags.model, "model", "", "model for --provider")
	f.StringVar(&searchFlags.ollamaURL, "ollama-url", "", "local Ollama server")
	f.StringVar(&searchFlags.ollamaModel, "ollama-model", "", "local Ollama model")
	f.BoolVar(&searchFlags.exchange, "exchange", false, "show the prompts sent and the replies received")
	f.BoolVar(&searchFlags.raw, "raw", false, "print markdown without terminal rendering")
	f.BoolVar(&searchFlags.jsonOut, "json", false, "print the result as JSON")
	rootCmd.AddCommand(searchCmd)
}
