package store

import (
	"context"
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// QuestState is a quest's quester progress as reconstructed from the journal.
type QuestState struct {
	Quest    string
	Progress map[string]ir.Progress // keyed by quester hex address
	LastSeq  int64
	Formulas int // formula_set events seen
	Outcomes int // outcomes_set events seen
	Executed int // outcome_executed events seen
}

// ReplayQuest folds the journal of quest into a QuestState.
//
// Progress only moves forward, so a journal with missing rows still yields
// the furthest state each quester is known to have reached.
func (s *Store) ReplayQuest(ctx context.Context, quest string) (QuestState, error) {
	state := QuestState{Quest: quest, Progress: make(map[string]ir.Progress)}

	events, err := s.ReadEvents(ctx, Filter{Quest: quest})
	if err != nil {
		return state, fmt.Errorf("replay quest: %w", err)
	}

	for _, ev := range events {
		if ev.Seq > state.LastSeq {
			state.LastSeq = ev.Seq
		}
		switch ev.Kind {
		case ir.EventFormulaSet:
			state.Formulas++
		case ir.EventOutcomesSet:
			state.Outcomes++
		case ir.EventOutcomeExecuted:
			state.Executed++
		case ir.EventQuesterEnrolled:
			advance(state.Progress, ev.Quester, ir.InProgress)
		case ir.EventQuestCompleted:
			advance(state.Progress, ev.Quester, ir.Completed)
		case ir.EventQuesterRewarded:
			advance(state.Progress, ev.Quester, ir.Rewarded)
		}
	}

	return state, nil
}

func advance(progress map[string]ir.Progress, quester string, to ir.Progress) {
	if progress[quester] < to {
		progress[quester] = to
	}
}
