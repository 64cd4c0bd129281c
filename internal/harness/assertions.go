package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/resource"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// evaluateAssertions runs every scenario assertion and returns the failure
// messages.
func (h *Harness) evaluateAssertions(ctx context.Context) []string {
	var errs []string
	for i, a := range h.scenario.Assertions {
		var err error
		switch a.Type {
		case AssertCounts:
			err = h.assertCounts(ctx, a)
		case AssertRecord:
			err = h.assertRecord(ctx, a, true)
		case AssertNoRecord:
			err = h.assertRecord(ctx, a, false)
		case AssertCheckpoint:
			err = h.assertCheckpoint(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) assertCounts(ctx context.Context, a Assertion) error {
	c, err := h.store.Counts(ctx)
	if err != nil {
		return err
	}
	got := Counts{Worlds: c.Worlds, Namespaces: c.Namespaces, Tables: c.Tables, Records: c.Records}
	if got != *a.Counts {
		return &AssertionError{
			Type:     AssertCounts,
			Expected: fmt.Sprintf("%+v", *a.Counts),
			Actual:   fmt.Sprintf("%+v", got),
		}
	}
	return nil
}

// assertRecord checks that the addressed record exists with the expected
// fields (want true) or is absent (want false).
func (h *Harness) assertRecord(ctx context.Context, a Assertion, want bool) error {
	rec, found, err := h.findRecord(ctx, a)
	if err != nil {
		return err
	}
	where := fmt.Sprintf("%s%v", a.Table, a.Keys)

	if !want {
		if found {
			return &AssertionError{Type: AssertNoRecord, Expected: "no record " + where, Actual: "record present"}
		}
		return nil
	}
	if !found {
		return &AssertionError{Type: AssertRecord, Expected: "record " + where, Actual: "record not found"}
	}

	for field, expected := range a.Fields {
		got, ok := rec.Fields[field]
		if !ok {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %v", where, field, expected),
				Actual:   "field missing",
			}
		}
		if !valuesEqual(expected, got) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %v", where, field, expected),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

func (h *Harness) assertCheckpoint(ctx context.Context, a Assertion) error {
	chainID, world, nsLabel := h.defaults(a.ChainID, a.World, a.Namespace)
	ns, err := resource.ParseNamespace(nsLabel)
	if err != nil {
		return err
	}
	nsHex := resource.Resource{Namespace: ns}.NamespaceHex()

	block, ok, err := h.store.NamespaceCheckpoint(ctx, chainID, world.Hex(), nsHex)
	if err != nil {
		return err
	}
	if !ok || block != a.Block {
		return &AssertionError{
			Type:     AssertCheckpoint,
			Expected: fmt.Sprintf("namespace %s at block %d", nsHex, a.Block),
			Actual:   fmt.Sprintf("block %d (present=%v)", block, ok),
		}
	}
	return nil
}

// findRecord walks world, namespace and table to the record for a's keys.
func (h *Harness) findRecord(ctx context.Context, a Assertion) (ir.Record, bool, error) {
	chainID, world, nsLabel := h.defaults(a.ChainID, a.World, a.Namespace)
	ns, err := resource.ParseNamespace(nsLabel)
	if err != nil {
		return ir.Record{}, false, err
	}
	keys, err := parseKeys(a.Keys)
	if err != nil {
		return ir.Record{}, false, err
	}

	w, ok, err := h.store.World(ctx, chainID, world.Hex())
	if err != nil || !ok {
		return ir.Record{}, false, err
	}
	nsHex := resource.Resource{Namespace: ns}.NamespaceHex()
	key, err := ir.RecordKey(w.UniqueKey, nsHex, a.Table, keys)
	if err != nil {
		return ir.Record{}, false, err
	}

	nss, err := h.store.Namespaces(ctx, w.ID)
	if err != nil {
		return ir.Record{}, false, err
	}
	for _, n := range nss {
		if n.Hex != nsHex {
			continue
		}
		tables, err := h.store.Tables(ctx, n.ID)
		if err != nil {
			return ir.Record{}, false, err
		}
		for _, t := range tables {
			if t.Name != a.Table {
				continue
			}
			recs, err := h.store.Records(ctx, t.ID)
			if err != nil {
				return ir.Record{}, false, err
			}
			for _, r := range recs {
				if r.Key == key {
					return r, true, nil
				}
			}
		}
	}
	return ir.Record{}, false, nil
}

// valuesEqual compares a YAML value with a decoded field by canonical JSON.
func valuesEqual(expected any, got ir.IRValue) bool {
	want, err := toIRValue(expected)
	if err != nil {
		return false
	}
	a, errA := ir.MarshalCanonical(want)
	b, errB := ir.MarshalCanonical(got)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// toIRValue converts a YAML-decoded value to an IR value.
func toIRValue(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case string:
		return ir.IRString(val), nil
	case int:
		return ir.IRInt(int64(val)), nil
	case int64:
		return ir.IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return ir.IRString(fmt.Sprint(val)), nil
		}
		return ir.IRInt(int64(val)), nil
	case bool:
		return ir.IRBool(val), nil
	case []any:
		arr := make(ir.IRArray, len(val))
		for i, e := range val {
			iv, err := toIRValue(e)
			if err != nil {
				return nil, err
			}
			arr[i] = iv
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
