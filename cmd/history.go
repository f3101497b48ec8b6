package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yuval-kahan/Bookmarks-Search/internal/history"
)

var historyFlags struct {
	query   string
	fuzzy   bool
	rng     string
	from    string
	to      string
	limit   int
	jsonOut bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and manage past searches",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initBase(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f := history.Filter{
			Query: historyFlags.query,
			Fuzzy: historyFlags.fuzzy,
			Range: history.Range(historyFlags.rng),
		}
		if f.From, err = parseDay(historyFlags.from, false); err != nil {
			return err
		}
		if f.To, err = parseDay(historyFlags.to, true); err != nil {
			return err
		}

		records, err := env.History.List(ctx)
		if err != nil {
			return err
		}
		records = f.Apply(records, time.Now())
		if historyFlags.limit > 0 && len(records) > historyFlags.limit {
			records = records[:historyFlags.limit]
		}

		out := cmd.OutOrStdout()
		if historyFlags.jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No searches found.")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %s  %-5s  %q  (%d results)\n",
				r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Mode, r.Query, len(r.Results))
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return env.History.Delete(cmd.Context(), args[0])
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return env.History.Clear(cmd.Context())
	},
}

// parseDay parses a YYYY-MM-DD date in local time. With endOfDay set the
// last instant of that day is returned. An empty string is the zero time.
func parseDay(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid date %q, want YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func init() {
	f := historyListCmd.Flags()
	f.StringVarP(&historyFlags.query, "query", "q", "", "only searches containing this text")
	f.BoolVar(&historyFlags.fuzzy, "fuzzy", false, "match --query as a fuzzy pattern")
	f.StringVar(&historyFlags.rng, "range", "", "today, yesterday, week or month")
	f.StringVar(&historyFlags.from, "from", "", "custom range start (YYYY-MM-DD, with --to)")
	f.StringVar(&historyFlags.to, "to", "", "custom range end, inclusive (YYYY-MM-DD)")
	f.IntVar(&historyFlags.limit, "limit", 0, "maximum entries to show")
	f.BoolVar(&historyFlags.jsonOut, "json", false, "print as JSON")

	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
