package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Database string
	Quest    string // optional - one quest only
	Quester  string // optional - one quester only
	Kind     string // optional - one event kind only
	Progress bool   // fold the journal into per-quester progress
}

// EventsResult lists journaled events.
type EventsResult struct {
	Events []ir.Event `json:"events"`
	Total  int        `json:"total"`
}

// ProgressResult is a quest's progress as rebuilt from the journal.
type ProgressResult struct {
	Quest    string            `json:"quest"`
	LastSeq  int64             `json:"last_seq"`
	Formulas int               `json:"formulas"`
	Outcomes int               `json:"outcomes"`
	Executed int               `json:"executed"`
	Progress map[string]string `json:"progress"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled quest events",
		Long: `List the events journaled to a SQLite database, in sequence order.

With --progress, the journal of one quest is folded into the furthest
progress each quester reached instead.

Examples:
  dquest events --db ./quests.db
  dquest events --db ./quests.db --quest genesis --kind outcome_executed
  dquest events --db ./quests.db --quest genesis --progress --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Quest, "quest", "", "show one quest only")
	cmd.Flags().StringVar(&opts.Quester, "quester", "", "show one quester only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "show one event kind only")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "print per-quester progress (requires --quest)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Progress && opts.Quest == "" {
		return NewExitError(ExitCommandError, "--progress requires --quest")
	}
	if opts.Quester != "" && !common.IsHexAddress(opts.Quester) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid quester address %q", opts.Quester))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Progress {
		return outputProgress(ctx, st, opts.Quest, formatter)
	}

	filter := store.Filter{Quest: opts.Quest, Kind: ir.EventKind(opts.Kind)}
	if opts.Quester != "" {
		filter.Quester = common.HexToAddress(opts.Quester).Hex()
	}
	events, err := st.ReadEvents(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	if opts.Format == "json" {
		return formatter.Success(EventsResult{Events: events, Total: len(events)})
	}

	w := formatter.Writer
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%6d %-12s %-17s", ev.Seq, ev.Quest, ev.Kind)
		if ev.Quester != "" {
			fmt.Fprintf(w, " %s", ev.Quester)
		}
		switch ev.Kind {
		case ir.EventFormulaSet:
			fmt.Fprintf(w, " generation=%d root=%d nodes=%d", ev.Generation, ev.RootID, ev.Count)
		case ir.EventOutcomesSet:
			fmt.Fprintf(w, " generation=%d outcomes=%d", ev.Generation, ev.Count)
		case ir.EventOutcomeExecuted:
			fmt.Fprintf(w, " outcome=%d %s", ev.OutcomeIndex, ev.Selector)
			if ev.Amount != "" {
				fmt.Fprintf(w, " amount=%s", ev.Amount)
			}
		}
		fmt.Fprintln(w)
	}
	formatter.VerboseLog("%d event(s)", len(events))
	return nil
}

func outputProgress(ctx context.Context, st *store.Store, quest string, formatter *OutputFormatter) error {
	state, err := st.ReplayQuest(ctx, quest)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay quest %s", quest), err)
	}
	if state.LastSeq == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no events for quest %s", quest))
	}

	result := ProgressResult{
		Quest:    state.Quest,
		LastSeq:  state.LastSeq,
		Formulas: state.Formulas,
		Outcomes: state.Outcomes,
		Executed: state.Executed,
		Progress: make(map[string]string, len(state.Progress)),
	}
	for quester, p := range state.Progress {
		result.Progress[quester] = p.String()
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Quest %s (last seq %d)\n", result.Quest, result.LastSeq)
	fmt.Fprintf(w, "  formulas set: %d, outcomes set: %d, outcomes executed: %d\n",
		result.Formulas, result.Outcomes, result.Executed)

	questers := make([]string, 0, len(result.Progress))
	for q := range result.Progress {
		questers = append(questers, q)
	}
	sort.Strings(questers)
	for _, q := range questers {
		fmt.Fprintf(w, "  %s %s\n", q, result.Progress[q])
	}
	return nil
}
