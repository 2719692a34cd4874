package commands

import (
	"context"

	"foodpillory/internal/config"
	"foodpillory/lib/serviceutil"
	"foodpillory/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:   "foodpillory",
	Short: "foodpillory collects and summarizes the food-service facilities closed by the food inspection authority.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "The config file, a missing file means defaults.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange to this directory (requires --verbose).")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		serviceutil.Fatal("failed to load config", err)
	}
	return cfg
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
