package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tea2x/evm-d-quest/internal/harness"
	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/quest"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Database string // journal path; empty means in-memory
	Filter   string // scenario filter (glob pattern)
	Metrics  bool   // report quest counters after the run
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string                 `json:"name"`
	Pass    bool                   `json:"pass"`
	Errors  []string               `json:"errors,omitempty"`
	Trace   []harness.TraceEvent   `json:"trace,omitempty"`
	Events  []ir.Event             `json:"events,omitempty"`
	Payouts []harness.PayoutRecord `json:"payouts,omitempty"`
}

// SimulateResult holds the overall simulation result.
type SimulateResult struct {
	Scenarios []ScenarioResult   `json:"scenarios"`
	Passed    int                `json:"passed"`
	Failed    int                `json:"failed"`
	Total     int                `json:"total"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml|scenarios-dir>",
		Short: "Run quest scenarios",
		Long: `Run one scenario file, or every scenario in a directory, against its
quest with deterministic handlers, a fixed clock and a recording payout.

Prints each step's outcome and checks the scenario's expectations and
assertions. With --db, events are journaled to the given SQLite database
and survive the run; inspect them with "dquest events".

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  dquest simulate ./scenarios/oracle_and.yaml
  dquest simulate ./scenarios --filter "season*"
  dquest simulate ./scenarios/oracle_and.yaml --db ./quests.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal events to this SQLite database")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report quest counters summed over all scenarios")

	return cmd
}

func runSimulate(opts *SimulateOptions, target string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", target))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to access scenario path", err)
	}

	files := []string{target}
	if info.IsDir() {
		files, err = findScenarioFiles(target, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
	}

	result := SimulateResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	var runOpts []harness.Option
	if opts.Database != "" {
		runOpts = append(runOpts, harness.WithDB(opts.Database))
	}
	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		runOpts = append(runOpts, harness.WithMetrics(quest.NewMetrics(reg)))
	}

	for _, file := range files {
		formatter.VerboseLog("Running scenario %s", file)
		sr := runScenario(file, runOpts)
		if opts.Format != "json" {
			printScenario(formatter.Writer, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if reg != nil {
		if result.Metrics, err = gatherCounters(reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	if opts.Format == "json" {
		if result.Failed > 0 {
			msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
			if err := formatter.Failure(result, "E_SCENARIO_FAILED", msg); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if len(result.Metrics) > 0 {
		printCounters(w, result.Metrics)
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario loads and executes one scenario file.
func runScenario(file string, runOpts []harness.Option) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	return ScenarioResult{
		Name:    scenario.Name,
		Pass:    result.Pass,
		Errors:  result.Errors,
		Trace:   result.Trace,
		Events:  result.Events,
		Payouts: result.Payouts,
	}
}

func printScenario(w io.Writer, sr ScenarioResult) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, sr.Name)

	for _, ev := range sr.Trace {
		fmt.Fprintf(w, "  %3d %-17s", ev.Step, ev.Action)
		if ev.Quester != "" {
			fmt.Fprintf(w, " %s", ev.Quester)
		}
		if ev.Node != 0 {
			fmt.Fprintf(w, " node=%d", ev.Node)
		}
		if ev.Request != "" {
			fmt.Fprintf(w, " request=%s", ev.Request)
		}
		if ev.OK != nil {
			fmt.Fprintf(w, " ok=%t", *ev.OK)
		}
		if ev.Error != "" {
			fmt.Fprintf(w, " error=%s", ev.Error)
		}
		fmt.Fprintln(w)
	}
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// gatherCounters flattens every counter in reg into
// name{label="value",...} keys.
func gatherCounters(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

func printCounters(w io.Writer, counters map[string]float64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "Metrics:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %g\n", k, counters[k])
	}
}
