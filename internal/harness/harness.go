package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/config"
	"github.com/roach88/mudsync/internal/dispatch"
	"github.com/roach88/mudsync/internal/hierarchy"
	"github.com/roach88/mudsync/internal/protocol"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
)

// DefaultChainID is used when a scenario does not set chain_id.
const DefaultChainID = 31337

// Harness is the test execution engine.
type Harness struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	scenario   *Scenario
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Register a schema handler per declared table
// 3. Encode and apply every event through the dispatcher
// 4. Evaluate assertions and take a snapshot of the store
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tables := config.Config{Tables: scenario.Tables}
	reg, err := tables.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to register tables: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	m, err := hierarchy.New(hierarchy.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:      st,
		dispatcher: dispatch.New(st, m, reg, dispatch.WithLogger(logger)),
		scenario:   scenario,
		logger:     logger,
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeEvents(ctx, result); err != nil {
		return nil, err
	}

	for _, errMsg := range h.evaluateAssertions(ctx) {
		result.AddError(errMsg)
	}

	snap, err := Snapshot(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}
	result.Snapshot = snap
	return result, nil
}

// executeEvents applies every event in order and records its outcome.
func (h *Harness) executeEvents(ctx context.Context, result *Result) error {
	for i, ev := range h.scenario.Events {
		chainID, log, err := h.buildLog(i, ev)
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}

		outcome := EventOutcome{Kind: ev.Kind, Table: ev.Table, Block: ev.Block, Outcome: "applied"}
		applyErr := h.dispatcher.ApplyLog(ctx, chainID, log)
		switch {
		case applyErr == nil && ev.ExpectError != "":
			result.AddError(fmt.Sprintf("events[%d]: expected %s, event applied", i, ev.ExpectError))
		case applyErr != nil && ev.ExpectError == "":
			result.AddError(fmt.Sprintf("events[%d]: %v", i, applyErr))
			outcome.Outcome = errorCode(applyErr)
		case applyErr != nil:
			outcome.Outcome = errorCode(applyErr)
			if !errors.Is(applyErr, ErrorCodes[ev.ExpectError]) {
				result.AddError(fmt.Sprintf("events[%d]: expected %s, got %v", i, ev.ExpectError, applyErr))
			}
		}
		result.Events = append(result.Events, outcome)

		h.logger.Info("event applied", "index", i, "kind", ev.Kind, "outcome", outcome.Outcome)
	}
	return nil
}

// errorCode returns the ErrorCodes name matching err, or "error".
func errorCode(err error) string {
	for _, name := range []string{
		"invalid_table_id", "invalid_data", "invalid_native_type",
		"invalid_native_value", "unknown_event", "malformed_log",
	} {
		if errors.Is(err, ErrorCodes[name]) {
			return name
		}
	}
	return "error"
}

// buildLog encodes ev as the raw log the world contract would emit.
func (h *Harness) buildLog(index int, ev Event) (uint64, types.Log, error) {
	kind, _ := parseKind(ev.Kind)
	chainID, world, nsLabel := h.defaults(ev.ChainID, ev.World, ev.Namespace)

	ns, err := resource.ParseNamespace(nsLabel)
	if err != nil {
		return 0, types.Log{}, err
	}
	rtype := resource.Table
	if ev.ResourceType != "" {
		if rtype, err = resource.ParseType(ev.ResourceType); err != nil {
			return 0, types.Log{}, err
		}
	}
	tableID, err := resource.Encode(rtype, ns[:], ev.Table)
	if err != nil {
		return 0, types.Log{}, err
	}
	keys, err := parseKeys(ev.Keys)
	if err != nil {
		return 0, types.Log{}, err
	}

	params := codec.Params{
		codec.ParamTableID:  [32]byte(tableID),
		codec.ParamKeyTuple: keys,
	}
	bytesParam := func(name, s string) error {
		b, err := parseHex(s)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		params[name] = b
		return nil
	}

	switch kind {
	case codec.SetRecord:
		lengths, err := encodedLengths(ev.Lengths)
		if err != nil {
			return 0, types.Log{}, err
		}
		params[codec.ParamEncodedLengths] = lengths
		if err := bytesParam(codec.ParamStaticData, ev.Static); err != nil {
			return 0, types.Log{}, err
		}
		if err := bytesParam(codec.ParamDynamicData, ev.Dynamic); err != nil {
			return 0, types.Log{}, err
		}
	case codec.SpliceStaticData:
		params[codec.ParamStart] = new(big.Int).SetUint64(ev.Start)
		if err := bytesParam(codec.ParamData, ev.Data); err != nil {
			return 0, types.Log{}, err
		}
	case codec.SpliceDynamicData:
		lengths, err := encodedLengths(ev.Lengths)
		if err != nil {
			return 0, types.Log{}, err
		}
		params[codec.ParamEncodedLengths] = lengths
		params[codec.ParamStart] = new(big.Int).SetUint64(ev.Start)
		params[codec.ParamDeleteCount] = new(big.Int).SetUint64(ev.DeleteCount)
		if err := bytesParam(codec.ParamData, ev.Data); err != nil {
			return 0, types.Log{}, err
		}
	}

	log, err := codec.Encode(kind, world, params)
	if err != nil {
		return 0, types.Log{}, err
	}
	log.BlockNumber = ev.Block
	log.Index = uint(index)
	return chainID, log, nil
}

// defaults fills unset event or assertion coordinates from the scenario.
func (h *Harness) defaults(chainID uint64, world, namespace string) (uint64, common.Address, string) {
	if chainID == 0 {
		chainID = h.scenario.ChainID
	}
	if chainID == 0 {
		chainID = DefaultChainID
	}
	if world == "" {
		world = h.scenario.World
	}
	if namespace == "" {
		namespace = h.scenario.Namespace
	}
	return chainID, common.HexToAddress(world), namespace
}

func encodedLengths(lengths []uint64) ([32]byte, error) {
	el, err := protocol.NewEncodedLengths(lengths...)
	if err != nil {
		return [32]byte{}, err
	}
	return el.Bytes(), nil
}

// parseHex decodes a hex string with optional 0x prefix. An odd digit
// count gets a leading zero.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// parseKeys decodes key words, right-aligning any shorter than 32 bytes.
func parseKeys(words []string) ([][32]byte, error) {
	keys := make([][32]byte, len(words))
	for i, w := range words {
		b, err := parseHex(w)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("keys[%d]: %d bytes exceeds a word", i, len(b))
		}
		copy(keys[i][32-len(b):], b)
	}
	return keys, nil
}
