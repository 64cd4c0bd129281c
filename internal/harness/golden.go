package harness

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/store"
)

// Snapshot converts the whole store into nested maps for canonical JSON.
// Row IDs and derived hash keys are left out so the snapshot depends only
// on the applied events.
func Snapshot(ctx context.Context, st *store.Store) (map[string]any, error) {
	worlds, err := st.Worlds(ctx)
	if err != nil {
		return nil, err
	}

	worldList := make([]any, 0, len(worlds))
	for _, w := range worlds {
		nss, err := st.Namespaces(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		nsList := make([]any, 0, len(nss))
		for _, ns := range nss {
			tables, err := st.Tables(ctx, ns.ID)
			if err != nil {
				return nil, err
			}
			tableList := make([]any, 0, len(tables))
			for _, t := range tables {
				recs, err := st.Records(ctx, t.ID)
				if err != nil {
					return nil, err
				}
				recList := make([]any, 0, len(recs))
				for _, r := range recs {
					recList = append(recList, recordMap(r))
				}
				tableList = append(tableList, map[string]any{
					"name":    t.Name,
					"records": recList,
				})
			}
			nsMap := map[string]any{
				"namespace_id": ns.Hex,
				"tables":       tableList,
			}
			if ns.LastSyncedBlock != nil {
				nsMap["last_synced_block"] = *ns.LastSyncedBlock
			}
			nsList = append(nsList, nsMap)
		}
		worldList = append(worldList, map[string]any{
			"chain_id":          w.ChainID,
			"address":           w.Address,
			"last_synced_block": w.LastSyncedBlock,
			"namespaces":        nsList,
		})
	}
	return map[string]any{"worlds": worldList}, nil
}

func recordMap(r ir.Record) map[string]any {
	keys := make([]any, len(r.KeyTuple))
	for i, k := range r.KeyTuple {
		keys[i] = "0x" + hex.EncodeToString(k[:])
	}
	fields := r.Fields
	if fields == nil {
		fields = ir.IRObject{}
	}
	return map[string]any{
		"key_tuple":    keys,
		"fields":       fields,
		"static_data":  "0x" + hex.EncodeToString(r.StaticData),
		"dynamic_data": "0x" + hex.EncodeToString(r.DynamicData),
		"block_number": r.BlockNumber,
	}
}

// goldenJSON is the canonical form compared against golden files.
func goldenJSON(name string, result *Result) ([]byte, error) {
	events := make([]any, len(result.Events))
	for i, e := range result.Events {
		events[i] = map[string]any{
			"kind":    e.Kind,
			"table":   e.Table,
			"block":   e.Block,
			"outcome": e.Outcome,
		}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"events":        events,
		"store":         result.Snapshot,
	})
}

// RunWithGolden executes a scenario and compares the events and final
// store against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := goldenJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
