package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lineage-cli/internal/lineage"
)

var (
	traceSource string
	traceTarget string
	traceFormat string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Print the lineage downstream of a source and upstream of a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("trace"); err != nil {
			return err
		}
		if err := checkFormat(traceFormat); err != nil {
			return err
		}

		r := lineage.NewRecorder(newLineageClient(cfg), lineage.Movement{
			Location: cfg.Lineage.Location(),
			Source:   traceSource,
			Target:   traceTarget,
		}, recorderOptions(cfg.Lineage)...)

		lin, err := r.RetrieveLineage(ctx)
		if err != nil {
			return err
		}
		return writeLineage(cmd.OutOrStdout(), lin, traceFormat)
	},
}

func checkFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return eris.Errorf("trace: unknown format %q (want text, json or yaml)", format)
}

func writeLineage(w io.Writer, lin *lineage.Lineage, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lin)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lin); err != nil {
			return eris.Wrap(err, "trace: encode yaml")
		}
		return enc.Close()
	}

	fmt.Fprintln(w, "downstream:")
	for _, e := range lin.Downstream {
		fmt.Fprintf(w, "  %s -> %s\n", e.Source, e.Target)
	}
	fmt.Fprintln(w, "upstream:")
	for _, e := range lin.Upstream {
		fmt.Fprintf(w, "  %s <- %s\n", e.Target, e.Source)
	}
	return nil
}

func init() {
	traceCmd.Flags().StringVar(&traceSource, "source", "", "node to walk downstream from (required)")
	traceCmd.Flags().StringVar(&traceTarget, "target", "", "node to walk upstream from (required)")
	traceCmd.Flags().StringVar(&traceFormat, "format", "text", "output format: text, json or yaml")
	_ = traceCmd.MarkFlagRequired("source")
	_ = traceCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(traceCmd)
}
