// Package harness runs quest scenarios end to end.
//
// A scenario names a CUE quest directory, drives the compiled quest
// through a flow of steps (enrollment, mission signals, oracle
// fulfillments, validation, distribution, clock moves) and asserts on the
// final state and the journaled events.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	quest: ../quests/genesis
//	flow:
//	  - action: enroll
//	    quester: "0x0000000000000000000000000000000000000011"
//	  - action: validate_quester
//	    quester: "0x0000000000000000000000000000000000000011"
//	    expect: { ok: false }
//	  - action: fulfill
//	    request: req-1
//	  - action: distribute
//	    quester: "0x0000000000000000000000000000000000000011"
//	    expect: { error: NOT_COMPLETED }
//	assertions:
//	  - type: progress
//	    quester: "0x0000000000000000000000000000000000000011"
//	    progress: InProgress
//	  - type: event_count
//	    kind: outcome_executed
//	    count: 0
//
// Steps without an expect clause must succeed.
//
// # Deterministic Execution
//
// Every run uses a fixed wall clock, sequential oracle request ids
// ("req-1", "req-2", ...), a recording payout and, unless a database path
// is given, an in-memory SQLite journal. Identical scenarios therefore
// produce identical traces, which RunWithGolden compares against
// testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/oracle_and.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
