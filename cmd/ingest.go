package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lineage-cli/internal/config"
	"github.com/sells-group/lineage-cli/internal/db"
	"github.com/sells-group/lineage-cli/internal/ingest"
	"github.com/sells-group/lineage-cli/internal/storage"
)

var (
	ingestPrefix      string
	ingestFamilies    []string
	ingestUpstream    string
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load staged extract files into the warehouse and record their lineage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if ingestConcurrency > 0 {
			cfg.Ingest.Concurrency = ingestConcurrency
		}
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		families, err := selectFamilies(cfg.Ingest.Families, ingestFamilies, cfg.Warehouse.Schema)
		if err != nil {
			return err
		}

		store, err := openStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Warehouse.DatabaseURL, cfg.Warehouse.Pool)
		if err != nil {
			return err
		}
		defer pool.Close()

		upstream := cfg.Ingest.Upstream
		if ingestUpstream != "" {
			upstream = ingestUpstream
		}

		runner, err := ingest.NewRunner(store, ingest.NewWarehouseLoader(pool, cfg.Ingest.BatchSize), newLineageClient(cfg), families, ingest.Options{
			Location:        cfg.Lineage.Location(),
			Project:         cfg.Warehouse.Project,
			TargetPrefix:    cfg.Warehouse.TargetPrefix,
			Upstream:        upstream,
			Concurrency:     cfg.Ingest.Concurrency,
			RecorderOptions: recorderOptions(cfg.Lineage),
		})
		if err != nil {
			return err
		}

		sum, err := runner.Run(ctx, ingestPrefix)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return eris.Wrap(err, "ingest: write summary")
		}
		if sum.Failed > 0 {
			return eris.Errorf("ingest: %d of %d files failed", sum.Failed, sum.Failed+sum.Loaded)
		}
		return nil
	},
}

// selectFamilies filters configured families by name, keeping config order,
// and fills an empty schema with the warehouse default.
func selectFamilies(all []ingest.Family, names []string, defaultSchema string) ([]ingest.Family, error) {
	var out []ingest.Family
	for _, f := range all {
		if len(names) > 0 && !slices.Contains(names, f.Name) {
			continue
		}
		if f.Schema == "" {
			f.Schema = defaultSchema
		}
		out = append(out, f)
	}
	for _, n := range names {
		if !slices.ContainsFunc(out, func(f ingest.Family) bool { return f.Name == n }) {
			return nil, eris.Errorf("ingest: unknown family %q", n)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("ingest: no families selected")
	}
	return out, nil
}

func openStore(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	switch sc.Driver {
	case "local":
		zap.L().Info("using local storage", zap.String("root", sc.LocalRoot))
		return storage.NewLocalStore(sc.LocalRoot, sc.Bucket, sc.URIScheme)
	case "s3":
		zap.L().Info("using s3 storage", zap.String("bucket", sc.Bucket), zap.String("endpoint", sc.Endpoint))
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       sc.Bucket,
			Region:       sc.Region,
			Endpoint:     sc.Endpoint,
			UsePathStyle: sc.UsePathStyle,
			URIScheme:    sc.URIScheme,
		})
	}
	return nil, eris.Errorf("ingest: unknown storage driver %q", sc.Driver)
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPrefix, "prefix", "", "object key prefix to load, e.g. staging/finwire")
	ingestCmd.Flags().StringSliceVar(&ingestFamilies, "families", nil, "family names to load (default all configured)")
	ingestCmd.Flags().StringVar(&ingestUpstream, "upstream", "", "record a download edge from this external source to each file")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "files loaded at once (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
