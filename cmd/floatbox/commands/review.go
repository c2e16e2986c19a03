package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudbun/floatbox/pkg/config"
	"github.com/cloudbun/floatbox/pkg/engine"
	"github.com/cloudbun/floatbox/pkg/parser"
	"github.com/cloudbun/floatbox/pkg/policy"
	"github.com/cloudbun/floatbox/pkg/report"
	"github.com/cloudbun/floatbox/pkg/telemetry"
	"github.com/cloudbun/floatbox/pkg/version"
)

var (
	sotPath        string
	columnMapPath  string
	satelliteSpecs []string
	satColumnMaps  []string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a user access review across satellite exports",
	Long: `Parse the Source-of-Truth roster, join every satellite export against
it, and print the risk summary.

Example:
  floatbox review --sot hr.csv --satellite okta=okta_users.csv --satellite aws=iam.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := runReview(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(renderSummary(rep))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	addReviewFlags(reviewCmd)
}

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sotPath, "sot", "", "Source-of-Truth roster CSV (required)")
	cmd.Flags().StringVar(&columnMapPath, "column-map", "", "Column map for the roster (YAML or JSON)")
	cmd.Flags().StringArrayVar(&satelliteSpecs, "satellite", nil, "Satellite export as system=path (repeatable)")
	cmd.Flags().StringArrayVar(&satColumnMaps, "sat-column-map", nil, "Per-system column map as system=path (repeatable)")
	_ = cmd.MarkFlagRequired("sot")
}

type satelliteInput struct {
	system string
	path   string
	spec   string
}

// runReview executes the whole pipeline: roster index, per-satellite
// worker fan-out over the serialized index, merge, policies. One Engine
// instance per satellite file; only the serialized index crosses into the
// workers, the same way isolated worker VMs receive it.
func runReview(ctx context.Context) (*report.MasterReport, error) {
	shutdown, err := telemetry.Init(ctx, "floatbox", version.Current, cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = shutdown(ctx) }()

	tracer := otel.Tracer("floatbox/review")
	ctx, span := tracer.Start(ctx, "Review")
	defer span.End()

	sats, err := parseSatelliteInputs()
	if err != nil {
		return nil, err
	}
	if len(sats) == 0 {
		return nil, fmt.Errorf("no satellite exports given; pass --satellite system=path")
	}

	sotBytes, err := os.ReadFile(sotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SoT file: %w", err)
	}
	sotSpec, err := config.LoadColumnMapSpec(columnMapPath)
	if err != nil {
		return nil, err
	}

	eng := engine.New()
	sotRes, err := eng.ParseSoT(sotBytes, sotSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoT: %w", err)
	}
	logWarnings(sotPath, sotRes.Warnings)
	slog.Info("SoT indexed",
		"records", sotRes.Stats.TotalRecords,
		"active", sotRes.Stats.ActiveCount,
		"terminated", sotRes.Stats.TerminatedCount,
		"unique_emails", sotRes.Stats.UniqueEmails)

	polEngine, err := loadPolicies(cfg)
	if err != nil {
		return nil, err
	}

	results := make([]*engine.JoinResult, len(sats))
	errs := make([]error, len(sats))
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

	for i, sat := range sats {
		wg.Add(1)
		go func(i int, sat satelliteInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = joinSatellite(ctx, tracer, sotRes.SerializedIndex, sat)
		}(i, sat)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("satellite %s: %w", sats[i].system, err)
		}
	}

	rep := report.MergeResults(eng.Index(), results, report.MergeOptions{
		ProcessingTimestamp: time.Now().UnixMilli(),
		DormancyDays:        cfg.Risk.DormancyDays,
		PrivilegedKeywords:  cfg.Risk.PrivilegedKeywords,
		Policies:            polEngine,
	})
	return rep, nil
}

// joinSatellite runs inside a worker goroutine with its own Engine
// instance, hydrated from the serialized index.
func joinSatellite(ctx context.Context, tracer trace.Tracer, serialized string, sat satelliteInput) (*engine.JoinResult, error) {
	_, span := tracer.Start(ctx, "Join."+sat.system, trace.WithAttributes(
		attribute.String("system", sat.system),
		attribute.String("path", sat.path),
	))
	defer span.End()

	data, err := os.ReadFile(sat.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	worker := engine.New()
	if err := worker.LoadIndex([]byte(serialized)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, err := worker.ParseSatellite(data, sat.system, sat.spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logWarnings(sat.path, res.Warnings)

	span.SetAttributes(
		attribute.Int("matched", len(res.Matched)),
		attribute.Int("orphans", len(res.Orphans)),
	)
	slog.Info("satellite joined",
		"system", sat.system,
		"processed", res.Stats.TotalProcessed,
		"exact_email", res.Stats.ExactEmail,
		"exact_id", res.Stats.ExactID,
		"fuzzy", res.Stats.FuzzyName,
		"ambiguous", res.Stats.Ambiguous,
		"orphans", res.Stats.Orphans)
	return res, nil
}

func parseSatelliteInputs() ([]satelliteInput, error) {
	specBySystem := make(map[string]string)
	for _, kv := range satColumnMaps {
		system, path, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --sat-column-map %q, want system=path", kv)
		}
		spec, err := config.LoadColumnMapSpec(path)
		if err != nil {
			return nil, err
		}
		specBySystem[system] = spec
	}

	var sats []satelliteInput
	for _, kv := range satelliteSpecs {
		system, path, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --satellite %q, want system=path", kv)
		}
		sats = append(sats, satelliteInput{
			system: system,
			path:   path,
			spec:   specBySystem[system],
		})
	}
	return sats, nil
}

func loadPolicies(cfg config.ReviewConfig) (*policy.Engine, error) {
	if cfg.PolicyPath == "" {
		return nil, nil
	}
	rules, err := policy.LoadRules(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	eng, err := policy.NewEngine()
	if err != nil {
		return nil, err
	}
	if err := eng.Compile(rules); err != nil {
		return nil, err
	}
	slog.Debug("review policies loaded", "rules", len(rules))
	return eng, nil
}

func logWarnings(source string, warnings []parser.Warning) {
	for _, w := range warnings {
		slog.Warn("parser warning", "source", source, "row", w.Row, "message", w.Message)
	}
}
