// Package quest implements the quest state machine: formula and outcome
// administration, quester enrollment, mission validation with caching,
// formula evaluation and reward distribution.
//
// ARCHITECTURE:
//
// Single-Writer Transactions:
// Every operation on a Quest runs under one mutex, so operations behave as
// one logical transaction at a time and never observe each other's
// in-flight state.
//
// Collaborators are called while the lock is held. Mission handlers may
// call back into SetMissionStatus during validation; the running
// transaction is carried on the context.Context handed to the handler, and
// calls made with that context join the transaction instead of waiting on
// the lock. Handlers must not use that context from other goroutines.
//
// Distribution carries its own re-entrancy guard. A Distribute call from
// another goroutine waits for the lock and runs after the current pass; a
// call a Payout collaborator makes from inside the pass, with the context
// it was handed, fails with REENTRANT.
//
// Distribution Order:
// Outcomes pay in index order. A limited outcome is charged against its
// remaining capacity before its transfer is made, so an exhausted limited
// native outcome is skipped without a transfer, and an outcome that cannot
// cover its payout aborts the pass before moving anything.
//
// Evaluation Flow:
//  1. ValidateQuester walks the formula with formula.Evaluate
//  2. each leaf goes through the (formula generation, quester, node) cache
//  3. uncached leaves are asked of the handler registered at node.Handler
//  4. a true result moves the quester from InProgress to Completed
//
// Events are stamped with a logical clock and written to an EventSink
// after the operation has committed. Sink failures are logged, never
// returned: the quest state is already final by then.
package quest
