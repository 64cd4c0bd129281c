package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/config"
	"github.com/roach88/mudsync/internal/resource"
)

// Scenario is one conformance test: tables, events and assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ChainID, World and Namespace are the defaults for every event.
	ChainID   uint64 `yaml:"chain_id"`
	World     string `yaml:"world"`
	Namespace string `yaml:"namespace"`

	// Tables are registered with a schema handler before any event runs.
	Tables []config.Table `yaml:"tables,omitempty"`

	// Events are applied in order.
	Events []Event `yaml:"events"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions"`
}

// Event describes one store event log. Hex strings may omit the 0x prefix.
type Event struct {
	// Kind is SetRecord, SpliceStaticData, SpliceDynamicData or DeleteRecord.
	Kind string `yaml:"kind"`

	Block uint64 `yaml:"block"`

	// ChainID, World and Namespace override the scenario defaults.
	ChainID   uint64 `yaml:"chain_id,omitempty"`
	World     string `yaml:"world,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`

	Table string `yaml:"table"`

	// ResourceType overrides the table resource type of the tableId, so
	// scenarios can send events for non-table resources.
	ResourceType string `yaml:"resource_type,omitempty"`

	// Keys are key tuple words. A word shorter than 32 bytes is
	// right-aligned, as for uintN keys.
	Keys []string `yaml:"keys"`

	Static      string   `yaml:"static,omitempty"`
	Lengths     []uint64 `yaml:"lengths,omitempty"`
	Dynamic     string   `yaml:"dynamic,omitempty"`
	Start       uint64   `yaml:"start,omitempty"`
	DeleteCount uint64   `yaml:"delete_count,omitempty"`
	Data        string   `yaml:"data,omitempty"`

	// ExpectError names the failure this event must produce; see
	// ErrorCodes. Empty means the event must apply.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	// Type is counts, record, no_record or checkpoint.
	Type string `yaml:"type"`

	// World and Namespace override the scenario defaults.
	World     string `yaml:"world,omitempty"`
	ChainID   uint64 `yaml:"chain_id,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`

	// Table and Keys address a record (record, no_record).
	Table string   `yaml:"table,omitempty"`
	Keys  []string `yaml:"keys,omitempty"`

	// Fields is a subset match against the record's decoded fields (record).
	Fields map[string]any `yaml:"fields,omitempty"`

	// Counts is the exact number of rows per level (counts).
	Counts *Counts `yaml:"counts,omitempty"`

	// Block is the expected namespace checkpoint (checkpoint).
	Block uint64 `yaml:"block,omitempty"`
}

// Counts mirrors store.Counts for YAML.
type Counts struct {
	Worlds     int `yaml:"worlds"`
	Namespaces int `yaml:"namespaces"`
	Tables     int `yaml:"tables"`
	Records    int `yaml:"records"`
}

// Assertion type constants.
const (
	AssertCounts     = "counts"
	AssertRecord     = "record"
	AssertNoRecord   = "no_record"
	AssertCheckpoint = "checkpoint"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.World == "" {
		return fmt.Errorf("world is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, ev := range s.Events {
		if _, ok := parseKind(ev.Kind); !ok {
			return fmt.Errorf("events[%d]: unknown kind %q", i, ev.Kind)
		}
		if ev.Table == "" {
			return fmt.Errorf("events[%d]: table is required", i)
		}
		if ev.ResourceType != "" {
			if _, err := resource.ParseType(ev.ResourceType); err != nil {
				return fmt.Errorf("events[%d]: %w", i, err)
			}
		}
		if ev.ExpectError != "" {
			if _, ok := ErrorCodes[ev.ExpectError]; !ok {
				return fmt.Errorf("events[%d]: unknown expect_error %q", i, ev.ExpectError)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCounts:
		if a.Counts == nil {
			return fmt.Errorf("assertions[%d]: counts is required for counts", index)
		}
	case AssertRecord:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for record", index)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields is required for record", index)
		}
	case AssertNoRecord:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for no_record", index)
		}
	case AssertCheckpoint:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func parseKind(s string) (codec.Kind, bool) {
	for _, k := range codec.Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
