// Package harness runs YAML scenarios of store events through the real
// dispatcher and checks the resulting mirror.
//
// A scenario declares the tables to register, a list of events, and
// assertions over the final store. Events are ABI-encoded into raw logs and
// applied with the production codec, hierarchy manager and handlers, each
// scenario in a fresh in-memory database.
//
// The final store can also be compared against a golden snapshot:
//
//	go test ./internal/harness -update
//
// regenerates testdata/golden/{scenario}.golden.
package harness
