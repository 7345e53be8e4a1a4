package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// QuestSummary describes one valid quest.
type QuestSummary struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	Root          uint64 `json:"root"`
	Nodes         int    `json:"nodes"`
	Outcomes      int    `json:"outcomes"`
	Handlers      int    `json:"handlers"`
	FormulaDigest string `json:"formula_digest"`
	OutcomeDigest string `json:"outcome_digest"`
}

// ValidationIssue is one problem found in a quest directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Quests []QuestSummary    `json:"quests,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <quest-dir>",
		Short: "Validate quest definitions",
		Long: `Validate the CUE quest definitions in a directory.

Compiles every declared quest, then checks its formula tree and reward
outcomes exactly as the quest would on submission. Prints the derived root
id and the formula and outcome digests of each valid quest.

Exit codes:
  0 - All quests valid
  1 - One or more quests invalid
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadQuest(dir)
	if loadResult == nil {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	result := ValidationResult{Valid: len(loadErrors) == 0}
	for _, q := range loadResult.Quests {
		formatter.VerboseLog("Validated quest: %s", q.Def.ID)
		result.Quests = append(result.Quests, summarize(q))
	}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toIssue(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func summarize(q LoadedQuest) QuestSummary {
	s := QuestSummary{
		ID:            q.Def.ID,
		Owner:         q.Def.Owner.Hex(),
		Root:          q.Root,
		Nodes:         len(q.Def.Formula),
		Outcomes:      len(q.Def.Outcomes),
		Handlers:      len(q.Def.Handlers),
		FormulaDigest: q.FormulaDigest,
		OutcomeDigest: q.OutcomeDigest,
	}
	if !q.Def.Start.IsZero() {
		s.Start = q.Def.Start.UTC().Format(time.RFC3339)
	}
	if !q.Def.End.IsZero() {
		s.End = q.Def.End.UTC().Format(time.RFC3339)
	}
	return s
}

func toIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Field: loadErr.Field, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, q := range result.Quests {
		fmt.Fprintf(w, "✓ %s: root %d, %d node(s), %d outcome(s)\n", q.ID, q.Root, q.Nodes, q.Outcomes)
		fmt.Fprintf(w, "  formula %s\n", q.FormulaDigest)
		fmt.Fprintf(w, "  outcomes %s\n", q.OutcomeDigest)
	}
	fmt.Fprintln(w, "✓ All quests valid")
	return nil
}

// outputValidationErrors outputs every problem found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range result.Errors {
		var loc []string
		if issue.Line > 0 {
			loc = append(loc, fmt.Sprintf("line %d", issue.Line))
		}
		if issue.Field != "" {
			loc = append(loc, issue.Field)
		}
		if len(loc) > 0 {
			fmt.Fprintln(w, strings.Join(loc, " "))
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return exitErr
}
