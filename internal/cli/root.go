// Package cli implements the planner command line.
package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/internal/metrics"
	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

// EnvPrefix prefixes the environment variables read for every flag, e.g. PLANNER_LOG_LEVEL.
const EnvPrefix = "PLANNER"

const (
	flagConfig         = "config"
	flagSettings       = "settings"
	flagLogLevel       = "log-level"
	flagDev            = "dev"
	flagTolerance      = "tolerance"
	flagOverride       = "override"
	flagOutput         = "output"
	flagFormat         = "format"
	flagMetricsFile    = "metrics-file"
	flagObjectiveClass = "objective-class"
	flagBudget         = "budget"
	flagParallel       = "parallel"
	flagIterations     = "iterations"
	flagSlack          = "slack"
	flagScoreClass     = "score-class"
	flagScoreIncrement = "score-increment"
	flagScoreThreshold = "score-threshold"
)

// Dependencies are the collaborators of the commands. Zero values select the defaults.
type Dependencies struct {
	// Solver replaces the simplex backend.
	Solver solver.Solver

	// Now stamps reports. Defaults to time.Now.
	Now func() time.Time
}

// NewRootCommand returns the planner command tree.
func NewRootCommand(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = &Dependencies{}
	}
	v := viper.New()

	root := &cobra.Command{
		Use:   "planner",
		Short: "Build and solve energy system capacity expansion models",
		Long: `planner turns a model definition into a linear program, solves it and
writes a report of the installed capacities and costs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadSettings(v, cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceP(flagConfig, "f", nil, "model definition file, repeat to solve scenarios")
	pf.String(flagSettings, "", "YAML file of flag values")
	pf.String(flagLogLevel, "info", "log level: error, info, debug or trace")
	pf.Bool(flagDev, false, "human-readable development logging")
	pf.Float64(flagTolerance, solver.DefaultSimplexTolerance, "simplex tolerance")
	pf.StringToString(flagOverride, nil, "scenario override as name=YAML entry")
	pf.StringP(flagOutput, "o", "", "report file, stdout when empty")
	pf.String(flagFormat, "yaml", "report format: yaml or json")
	pf.String(flagMetricsFile, "", "write metrics in Prometheus text format to this file")
	pf.String(flagObjectiveClass, config.DefaultCostClass, "cost class minimized")

	root.AddCommand(newPlanCommand(v, deps), newSporesCommand(v, deps))
	return root
}

// loadSettings binds flags and PLANNER_* variables, then reads the settings file.
// Precedence is flag, environment, settings file, flag default.
func loadSettings(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	path := v.GetString(flagSettings)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading settings file %s: %w", path, err)
	}
	return nil
}

// environment is the state shared by one command execution.
type environment struct {
	ctx       context.Context
	cmd       *cobra.Command
	v         *viper.Viper
	now       func() time.Time
	registry  *prometheus.Registry
	optimizer *optimizer.Optimizer
}

func newEnvironment(cmd *cobra.Command, v *viper.Viper, deps *Dependencies, maxParallel int) (*environment, error) {
	logger, err := logging.NewLogger(v.GetString(flagLogLevel), v.GetBool(flagDev))
	if err != nil {
		return nil, err
	}
	ctrl.SetLogger(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ctrl.LoggerInto(ctx, logger)

	s := deps.Solver
	if s == nil {
		s = solver.NewSimplex(solver.SimplexConfig{Tolerance: v.GetFloat64(flagTolerance)})
	}
	reg := prometheus.NewRegistry()
	opt, err := optimizer.NewOptimizer(&optimizer.OptimizerConfig{
		Solver:      s,
		Metrics:     metrics.NewMetrics(reg),
		MaxParallel: maxParallel,
	})
	if err != nil {
		return nil, err
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &environment{ctx: ctx, cmd: cmd, v: v, now: now, registry: reg, optimizer: opt}, nil
}

// loadConfigs reads every model definition and applies the scenario overrides.
// A definition without a name is named after its file.
func (e *environment) loadConfigs() ([]*config.Config, error) {
	paths := e.v.GetStringSlice(flagConfig)
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --%s is required", flagConfig)
	}
	raw, err := overrideEntries(e.v)
	if err != nil {
		return nil, err
	}
	overrides := config.ParseOverrideEntries(raw)

	out := make([]*config.Config, 0, len(paths))
	for _, path := range paths {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", path, err)
		}
		if cfg.Name == "" {
			cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if len(overrides) > 0 {
			if cfg, err = overrides.Apply(cfg); err != nil {
				return nil, fmt.Errorf("error applying overrides to %s: %w", path, err)
			}
		}
		out = append(out, cfg)
	}
	return out, nil
}

// overrideEntries reads the scenario overrides through viper. The flag and
// PLANNER_OVERRIDE carry name=entry pairs as one CSV record, quoted when an entry
// spans lines. A settings file carries a mapping of name to entry.
func overrideEntries(v *viper.Viper) (map[string]string, error) {
	raw, ok := v.Get(flagOverride).(string)
	if !ok {
		return v.GetStringMapString(flagOverride), nil
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if raw == "" {
		return nil, nil
	}
	fields, err := csv.NewReader(strings.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagOverride, err)
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		name, entry, found := strings.Cut(f, "=")
		if !found {
			return nil, fmt.Errorf("invalid --%s value %q, want name=entry", flagOverride, f)
		}
		out[name] = entry
	}
	return out, nil
}

const yamlSeparator = "---\n"

type report interface {
	Validate() error
}

// write validates and encodes reports to the output file or the command's stdout.
// YAML reports are written as one multi-document stream.
func (e *environment) write(reports ...report) (err error) {
	for _, r := range reports {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	var w io.Writer = e.cmd.OutOrStdout()
	if path := e.v.GetString(flagOutput); path != "" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return fmt.Errorf("error creating report file: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	switch format := e.v.GetString(flagFormat); format {
	case "yaml":
		for i, r := range reports {
			b, err := yaml.Marshal(r)
			if err != nil {
				return fmt.Errorf("error encoding report: %w", err)
			}
			if i > 0 {
				b = append([]byte(yamlSeparator), b...)
			}
			if _, err := w.Write(b); err != nil {
				return fmt.Errorf("error writing report: %w", err)
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		for _, r := range reports {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("error encoding report: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// flushMetrics writes the collected metrics when a metrics file was requested.
func (e *environment) flushMetrics() error {
	path := e.v.GetString(flagMetricsFile)
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("error writing metrics: %w", err)
	}
	return nil
}

// parseBudgets parses class=limit pairs.
func parseBudgets(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for class, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid budget for cost class %q: %w", class, err)
		}
		out[class] = v
	}
	return out, nil
}
