package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/tea2x/evm-d-quest/internal/compiler"
	"github.com/tea2x/evm-d-quest/internal/formula"
	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/reward"
)

// LoadedQuest is a compiled quest whose formula and outcomes passed
// semantic validation.
type LoadedQuest struct {
	Def           *compiler.QuestDef
	Root          uint64
	FormulaDigest string
	OutcomeDigest string
}

// LoadResult contains the quests loaded from a directory.
type LoadResult struct {
	Quests    []LoadedQuest
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during quest loading.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LoadQuest loads, compiles and validates every quest declared in dir.
//
// Directory problems return a nil result. Otherwise every structural and
// semantic problem found is returned alongside the quests that passed.
func LoadQuest(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("quest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing quest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	defs, err := compiler.LoadDir(dir)
	errs := convertCompileErrors(err)

	for _, def := range defs {
		loaded, verr := validateQuest(def)
		if verr != nil {
			errs = append(errs, verr)
			continue
		}
		result.Quests = append(result.Quests, loaded)
	}

	return result, errs
}

// validateQuest runs the checks SetMissionNodeFormulas and SetOutcomes
// would run, so bad definitions are caught before any quest is created.
func validateQuest(def *compiler.QuestDef) (LoadedQuest, error) {
	root, err := formula.Validate(def.Formula)
	if err != nil {
		var ve *formula.ValidationError
		if errors.As(err, &ve) {
			return LoadedQuest{}, &LoadError{Code: ve.Code, Field: def.ID + ".formula." + ve.Field, Message: ve.Message}
		}
		return LoadedQuest{}, &LoadError{Code: ErrCodeGeneric, Field: def.ID + ".formula", Message: err.Error()}
	}

	if err := reward.Validate(def.Outcomes); err != nil {
		var ve *reward.ValidationError
		if errors.As(err, &ve) {
			return LoadedQuest{}, &LoadError{Code: ve.Code, Field: def.ID + "." + ve.Field, Message: ve.Message}
		}
		return LoadedQuest{}, &LoadError{Code: ErrCodeGeneric, Field: def.ID + ".outcomes", Message: err.Error()}
	}

	loaded := LoadedQuest{Def: def, Root: root}
	if loaded.FormulaDigest, err = ir.FormulaDigest(def.Formula); err != nil {
		return LoadedQuest{}, &LoadError{Code: ErrCodeGeneric, Field: def.ID + ".formula", Message: err.Error()}
	}
	if loaded.OutcomeDigest, err = ir.OutcomeDigest(def.Outcomes); err != nil {
		return LoadedQuest{}, &LoadError{Code: ErrCodeGeneric, Field: def.ID + ".outcomes", Message: err.Error()}
	}
	return loaded, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileErrors flattens compiler output into LoadErrors with
// position info.
func convertCompileErrors(err error) []error {
	if err == nil {
		return nil
	}

	var list compiler.CompileErrors
	if errors.As(err, &list) {
		out := make([]error, 0, len(list))
		for _, ce := range list {
			out = append(out, convertCompileError(ce))
		}
		return out
	}

	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return []error{convertCompileError(ce)}
	}
	return []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
}

func convertCompileError(ce *compiler.CompileError) *LoadError {
	return &LoadError{
		Code:    MapFieldToErrorCode(ce.Field),
		Field:   ce.Field,
		Message: ce.Message,
		Pos:     ce.Pos,
	}
}

// Error code constants - unified across all CLI commands.
// Formula (E2xx) and outcome (E3xx) codes come from the formula and reward
// packages.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeBadArgs     = "E007" // Invalid command arguments

	// Quest definition errors
	ErrCodeQuestMissing  = "E101" // No quest declared
	ErrCodeQuestIdentity = "E102" // Invalid id or owner
	ErrCodeQuestWindow   = "E103" // Invalid start/end window
	ErrCodeQuestFormula  = "E104" // Malformed formula node
	ErrCodeQuestOutcome  = "E105" // Malformed outcome
	ErrCodeQuestHandler  = "E106" // Malformed handler binding
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields are prefixed with the quest label ("genesis.outcomes[1].token").
func MapFieldToErrorCode(field string) string {
	if field == "quest" {
		return ErrCodeQuestMissing
	}

	section := field
	if i := strings.IndexByte(field, '.'); i >= 0 {
		section = field[i+1:]
	}
	switch {
	case section == "cue":
		return ErrCodeBuildFailed
	case strings.HasPrefix(section, "id"), strings.HasPrefix(section, "owner"):
		return ErrCodeQuestIdentity
	case strings.HasPrefix(section, "start"), strings.HasPrefix(section, "end"):
		return ErrCodeQuestWindow
	case strings.HasPrefix(section, "formula"):
		return ErrCodeQuestFormula
	case strings.HasPrefix(section, "outcomes"):
		return ErrCodeQuestOutcome
	case strings.HasPrefix(section, "handlers"):
		return ErrCodeQuestHandler
	default:
		return ErrCodeGeneric
	}
}
