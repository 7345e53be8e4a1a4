// Package formula validates, stores and evaluates mission formulas.
//
// A formula is a binary AND/OR tree submitted as an unordered node list with
// externally chosen ids. Validate derives the unique root and rejects
// malformed or cyclic lists before anything is stored. Store keeps the
// accepted tree in a generational store so a resubmission replaces the
// whole tree in O(1). Evaluate walks the stored tree for one quester.
//
// Both walks are iterative with an explicit stack and a depth bound; node
// lists are administrator input and must not be able to exhaust the
// goroutine stack.
package formula
