package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cloudbun/floatbox/pkg/config"
	"github.com/cloudbun/floatbox/pkg/version"
)

var (
	cfgFile string
	verbose bool
	cfg     = config.DefaultReviewConfig()
)

var rootCmd = &cobra.Command{
	Use:   "floatbox",
	Short: "User Access Review engine",
	Long: `Floatbox - Identity Resolution & Risk Scoring

Resolve. Join. Review.`,
	Version: version.Current,
	// Run: nil (Forces help output).
	Run: nil,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Accept underscore spellings from config-file muscle memory.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Persistent Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.floatbox.yaml)")
	rootCmd.PersistentFlags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Parallel satellite workers")
	rootCmd.PersistentFlags().StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Report output directory")
	rootCmd.PersistentFlags().StringVar(&cfg.Format, "format", cfg.Format, "Export format: csv, json, all")
	rootCmd.PersistentFlags().IntVar(&cfg.Risk.DormancyDays, "dormancy-days", cfg.Risk.DormancyDays, "Days without login before an account counts as dormant")
	rootCmd.PersistentFlags().StringVar(&cfg.PolicyPath, "policy", "", "Review-policy rules file (YAML)")
	rootCmd.PersistentFlags().StringVar(&cfg.OTelEndpoint, "otel-endpoint", "", "OTLP trace endpoint")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".floatbox.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("FLOATBOX")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		_ = viper.Unmarshal(&cfg)
	}
}
