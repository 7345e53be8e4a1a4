package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir loads the CUE package in dir and compiles every quest it
// declares.
func LoadDir(dir string) ([]*QuestDef, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return CompileAll(value)
}

// CompileAll compiles every field of the top-level quest struct in
// declaration order. Errors from all quests are collected; field paths are
// prefixed with the quest label.
func CompileAll(v cue.Value) ([]*QuestDef, error) {
	questsVal := v.LookupPath(cue.ParsePath("quest"))
	if !questsVal.Exists() {
		return nil, &CompileError{Field: "quest", Message: "no quest declared", Pos: v.Pos()}
	}

	iter, err := questsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []*QuestDef
	var errs CompileErrors
	for iter.Next() {
		label := strings.Trim(iter.Selector().String(), `"`)
		def, err := CompileQuest(iter.Value())
		if err == nil {
			defs = append(defs, def)
			continue
		}

		switch e := err.(type) {
		case CompileErrors:
			for _, ce := range e {
				ce.Field = label + "." + ce.Field
				errs = append(errs, ce)
			}
		case *CompileError:
			e.Field = label + "." + e.Field
			errs = append(errs, e)
		default:
			errs = append(errs, &CompileError{Field: label, Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return defs, errs
	}
	if len(defs) == 0 {
		return nil, &CompileError{Field: "quest", Message: "no quest declared", Pos: questsVal.Pos()}
	}
	return defs, nil
}
