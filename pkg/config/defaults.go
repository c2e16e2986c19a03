// Package config defines default configuration and risk parameters.
package config

// RiskConfig defines the parameters for the risk scorer.
type RiskConfig struct {
	// DormancyDays is how long without a login counts as dormant.
	DormancyDays int `mapstructure:"dormancy_days"`
	// PrivilegedKeywords flag a role or entitlement as privileged.
	// Empty means the engine's built-in set.
	PrivilegedKeywords []string `mapstructure:"privileged_keywords"`
}

// ReviewConfig drives one review run.
type ReviewConfig struct {
	// Concurrency caps the number of parallel satellite workers.
	Concurrency int `mapstructure:"concurrency"`
	// OutputDir is where exported reports land.
	OutputDir string `mapstructure:"output_dir"`
	// Format selects the export format: "csv", "json", or "all".
	Format string `mapstructure:"format"`
	// PolicyPath points at a review-policy rules file.
	PolicyPath string `mapstructure:"policy"`
	// OTelEndpoint enables OTLP trace export when set.
	OTelEndpoint string     `mapstructure:"otel_endpoint"`
	Risk         RiskConfig `mapstructure:"risk"`
}

// DefaultReviewConfig returns a configuration with sensible default values.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Concurrency: 4,
		OutputDir:   "./floatbox-out",
		Format:      "all",
		Risk: RiskConfig{
			DormancyDays: 90,
		},
	}
}
