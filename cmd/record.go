package main

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lineage-cli/internal/lineage"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

type recordFlags struct {
	process string
	origin  string
	jobID   string
	start   string
	end     string
	source  string
	target  string
}

var recordOpts recordFlags

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one source-to-target data movement",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("record"); err != nil {
			return err
		}

		m, err := recordOpts.movement(cfg.Lineage.Location(), time.Now())
		if err != nil {
			return err
		}

		rec, err := lineage.NewRecorder(newLineageClient(cfg), m, recorderOptions(cfg.Lineage)...).CreateLineage(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// movement builds the Movement described by the flags. Missing timestamps
// default to now.
func (f recordFlags) movement(loc datalineage.Location, now time.Time) (lineage.Movement, error) {
	start, err := parseTime(f.start, now)
	if err != nil {
		return lineage.Movement{}, eris.Wrap(err, "record: --start")
	}
	end, err := parseTime(f.end, now)
	if err != nil {
		return lineage.Movement{}, eris.Wrap(err, "record: --end")
	}
	return lineage.Movement{
		Location:    loc,
		ProcessName: f.process,
		Origin:      f.origin,
		JobID:       f.jobID,
		Start:       start,
		End:         end,
		Source:      f.source,
		Target:      f.target,
	}, nil
}

func parseTime(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordOpts.process, "process", "", "process display name (required)")
	f.StringVar(&recordOpts.origin, "origin", "", "script or job that moved the data")
	f.StringVar(&recordOpts.jobID, "job-id", "", "run name; empty records a Manual run")
	f.StringVar(&recordOpts.start, "start", "", "movement start, RFC 3339 (default now)")
	f.StringVar(&recordOpts.end, "end", "", "movement end, RFC 3339 (default now)")
	f.StringVar(&recordOpts.source, "source", "", "fully qualified source name (required)")
	f.StringVar(&recordOpts.target, "target", "", "fully qualified target name (required)")
	_ = recordCmd.MarkFlagRequired("process")
	_ = recordCmd.MarkFlagRequired("source")
	_ = recordCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(recordCmd)
}
