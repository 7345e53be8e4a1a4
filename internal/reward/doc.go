// Package reward validates, stores and distributes quest outcomes.
//
// Outcomes are kept in a generational store so a new reward list replaces
// the old one in O(1). Distribute runs one distribution pass for a quester
// against a working copy of the list; nothing is written back unless every
// collaborator call in the pass succeeds, after which Store.Apply commits
// the depleted capacities and the recomputed availability flag.
package reward
