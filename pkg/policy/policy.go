// Package policy evaluates user-defined review rules against merged
// findings. Rules never touch the engine's risk table; they adjust the
// effective level recorded on a report entry after scoring.
package policy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"gopkg.in/yaml.v3"
)

// Action is what a matching rule does to a finding.
type Action string

const (
	// ActionEscalate raises the finding to the rule's level if higher.
	ActionEscalate Action = "escalate"
	// ActionSuppress downgrades the finding to INFO/0 (reviewed-accepted).
	ActionSuppress Action = "suppress"
	// ActionWarn tags the finding without changing its level.
	ActionWarn Action = "warn"
)

// Rule is one user-defined review policy.
type Rule struct {
	ID        string `json:"id" yaml:"id"`
	Condition string `json:"condition" yaml:"condition"` // CEL: "matchType == 'orphan' && system == 'okta'"
	Action    Action `json:"action" yaml:"action"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty"` // escalation target
}

// Finding is the evaluation context one report entry exposes to rules.
type Finding struct {
	System           string
	MatchType        string
	RiskLevel        string
	RiskScore        int
	EmploymentStatus string
	AccountStatus    string
	Role             string
	Entitlement      string
	Email            string
	Department       string
}

type program struct {
	rule Rule
	prg  cel.Program
}

// Engine compiles and runs review rules.
type Engine struct {
	env      *cel.Env
	programs []program
}

// NewEngine initializes the CEL environment with the finding fields as
// top-level variables.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("system", decls.String),
			decls.NewVar("matchType", decls.String),
			decls.NewVar("riskLevel", decls.String),
			decls.NewVar("riskScore", decls.Int),
			decls.NewVar("employmentStatus", decls.String),
			decls.NewVar("accountStatus", decls.String),
			decls.NewVar("role", decls.String),
			decls.NewVar("entitlement", decls.String),
			decls.NewVar("email", decls.String),
			decls.NewVar("department", decls.String),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &Engine{env: env}, nil
}

// Compile turns rules into executable programs. A rule that fails to
// compile fails the whole batch; review policies are config, and broken
// config should stop the run.
func (e *Engine) Compile(rules []Rule) error {
	for _, r := range rules {
		switch r.Action {
		case ActionEscalate, ActionSuppress, ActionWarn:
		default:
			return fmt.Errorf("rule %s: unknown action %q", r.ID, r.Action)
		}
		if r.Action == ActionEscalate && r.Level == "" {
			return fmt.Errorf("rule %s: escalate requires a level", r.ID)
		}

		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		e.programs = append(e.programs, program{rule: r, prg: prg})
	}
	return nil
}

// Evaluate returns the rules matching a finding, in rule declaration
// order. Per-rule evaluation errors are logged and skipped.
func (e *Engine) Evaluate(f Finding) []Rule {
	vars := map[string]interface{}{
		"system":           f.System,
		"matchType":        f.MatchType,
		"riskLevel":        f.RiskLevel,
		"riskScore":        f.RiskScore,
		"employmentStatus": f.EmploymentStatus,
		"accountStatus":    f.AccountStatus,
		"role":             f.Role,
		"entitlement":      f.Entitlement,
		"email":            f.Email,
		"department":       f.Department,
	}

	var matches []Rule
	for _, p := range e.programs {
		out, _, err := p.prg.Eval(vars)
		if err != nil {
			slog.Error("Rule evaluation failed", "rule_id", p.rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, p.rule)
		}
	}
	return matches
}

type rulesFile struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// LoadRules reads a rules file. YAML and JSON both parse; the file carries
// a top-level "rules" list.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return rf.Rules, nil
}
