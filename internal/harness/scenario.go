// Package harness runs yaml-defined debugging scenarios against a session
// and compares the resulting execution traces to golden files.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted debugging session: an initial state, a queue
// file, an ordered list of operator steps, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// State is the path to the initial state JSON file,
	// relative to the scenario file.
	State string `yaml:"state"`

	// Queue is the path to the queue JSON file, relative to the scenario file.
	Queue string `yaml:"queue"`

	// RunLimit overrides the drain step limit. Zero keeps the default.
	RunLimit int `yaml:"run_limit,omitempty"`

	// Steps are executed in order. Each step is exactly one operator command.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operator command. Exactly one of Run, Reorder, or Script must
// be set.
type Step struct {
	// Run executes messages: "next", "all", or a decimal message id.
	Run string `yaml:"run,omitempty"`

	// Reorder applies a built-in policy: identity, reverse, sort, shuffle.
	Reorder string `yaml:"reorder,omitempty"`

	// Seed fixes the shuffle RNG. Only meaningful with reorder: shuffle.
	Seed int64 `yaml:"seed,omitempty"`

	// Script reorders the queue with an external script,
	// relative to the scenario file.
	Script string `yaml:"script,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected value for executed_count and queue_len.
	Count int `yaml:"count,omitempty"`

	// Balance is the expected decimal balance for final_balance.
	Balance string `yaml:"balance,omitempty"`

	// Status names an account status (final_status) or a transaction
	// status (tx_status).
	Status string `yaml:"status,omitempty"`

	// MessageID selects the transaction for tx_status.
	MessageID int64 `yaml:"message_id,omitempty"`
}

// Assertion type constants.
const (
	AssertExecutedCount = "executed_count"
	AssertQueueLen      = "queue_len"
	AssertFinalBalance  = "final_balance"
	AssertFinalStatus   = "final_status"
	AssertTxStatus      = "tx_status"
)

// LoadScenario reads and parses a scenario yaml file. File paths inside the
// scenario resolve relative to the scenario file's directory. Returns an
// error if the file is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.State != "" && !filepath.IsAbs(scenario.State) {
		scenario.State = filepath.Join(base, scenario.State)
	}
	if scenario.Queue != "" && !filepath.IsAbs(scenario.Queue) {
		scenario.Queue = filepath.Join(base, scenario.Queue)
	}
	for i := range scenario.Steps {
		if s := scenario.Steps[i].Script; s != "" && !filepath.IsAbs(s) {
			scenario.Steps[i].Script = filepath.Join(base, s)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.State == "" {
		return fmt.Errorf("state is required")
	}
	if s.Queue == "" {
		return fmt.Errorf("queue is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, path := range []string{s.State, s.Queue} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	for _, field := range []string{st.Run, st.Reorder, st.Script} {
		if field != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of run, reorder, script is required", index)
	}

	switch {
	case st.Run != "":
		if st.Run != "next" && st.Run != "all" {
			if _, err := strconv.ParseInt(st.Run, 10, 64); err != nil {
				return fmt.Errorf("steps[%d]: run must be \"next\", \"all\", or a message id", index)
			}
		}
	case st.Reorder != "":
		switch st.Reorder {
		case "identity", "reverse", "sort", "shuffle":
		default:
			return fmt.Errorf("steps[%d]: unknown reorder policy %q", index, st.Reorder)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertExecutedCount, AssertQueueLen:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalBalance:
		if a.Balance == "" {
			return fmt.Errorf("assertions[%d]: balance is required for final_balance", index)
		}
	case AssertFinalStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for final_status", index)
		}
	case AssertTxStatus:
		if a.MessageID == 0 {
			return fmt.Errorf("assertions[%d]: message_id is required for tx_status", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for tx_status", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
