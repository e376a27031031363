package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/battle64/internal/app"
	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
)

type rankOptions struct {
	tieBreak string
	maxName  int
	limit    int
	format   string
}

func newRankCommand() *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank FILE",
		Short: "Rank a JSON or YAML file of race entries",
		Long: `Rank reads a list of race entries and prints them fastest first.
Malformed times are normalized to 0:00.000, marked with "!" and ranked last.
Use "-" to read from stdin.`,
		Example: `  b64ctl rank entries.json
  b64ctl rank --tie-break submission_date entries.yaml
  cat entries.json | b64ctl rank - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.tieBreak, "tie-break", string(timing.TieBreakInputOrder), "tie break for equal times: input_order or submission_date")
	cmd.Flags().IntVar(&opts.maxName, "max-name", 32, "truncate usernames to this many characters (0 disables)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "show only the first N entries (0 shows all)")
	cmd.Flags().StringVarP(&opts.format, "format", "o", "table", "output format: table or json")
	return cmd
}

func runRank(cmd *cobra.Command, path string, opts *rankOptions) error {
	tb, err := timing.ParseTieBreak(opts.tieBreak)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	name := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in, name = f, path
	}

	entries, err := decodeEntries(name, in)
	if err != nil {
		return err
	}
	ranked := timing.RankEntries(entries, timing.WithTieBreak(tb))
	if opts.limit > 0 && opts.limit < len(ranked) {
		ranked = ranked[:opts.limit]
	}

	switch opts.format {
	case "table":
		return renderTable(cmd.OutOrStdout(), ranked, opts.maxName)
	case "json":
		return renderJSON(cmd.OutOrStdout(), ranked, opts.maxName)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

type jsonRow struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Time        string `json:"time"`
	RawTime     string `json:"raw_time"`
	ValidFormat bool   `json:"valid_format"`
	IsFallback  bool   `json:"is_fallback"`
	Verified    bool   `json:"verified"`
}

func renderJSON(w io.Writer, ranked []model.RankedEntry, maxName int) error {
	rows := make([]jsonRow, len(ranked))
	for i := range ranked {
		e := &ranked[i]
		display := timing.DisplayTime(*e)
		rows[i] = jsonRow{
			Rank:        e.Rank,
			ID:          e.ID,
			UserID:      e.UserID,
			Username:    service.DisplayName(e.Username, maxName),
			Time:        display.Text,
			RawTime:     e.RawTime,
			ValidFormat: e.IsValidFormat,
			IsFallback:  display.IsFallback,
			Verified:    e.Verified,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
