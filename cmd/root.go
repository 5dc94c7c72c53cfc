package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lineage-cli/internal/config"
)

var cfg *config.Config

// rootFlags override the matching config keys when set.
var rootFlags struct {
	configFile string
	project    string
	region     string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:          "lineage-cli",
	Short:        "Record and trace data lineage",
	Long:         "Records source-to-target data movements as process, run and lineage event resources, walks the lineage graph around a node, and loads staged extracts while recording their lineage.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c

		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("project", cfg.Lineage.Project),
			zap.String("region", cfg.Lineage.Region),
			zap.String("log_level", cfg.Log.Level),
		)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configFile, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&rootFlags.project, "project", "", "lineage project id (overrides lineage.project)")
	pf.StringVar(&rootFlags.region, "region", "", "lineage region (overrides lineage.region)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "log level (overrides log.level)")
}

func loadConfig() (*config.Config, error) {
	c, err := config.LoadFile(rootFlags.configFile)
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	applyOverrides(c, rootFlags.project, rootFlags.region, rootFlags.logLevel)
	return c, nil
}

func applyOverrides(c *config.Config, project, region, logLevel string) {
	if project != "" {
		c.Lineage.Project = project
	}
	if region != "" {
		c.Lineage.Region = region
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
