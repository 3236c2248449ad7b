package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/actorlab/qdb/internal/engine"
)

// TraceSnapshot is the golden-file layout for a scenario trace. Field order
// here fixes the serialized field order.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FinalStatus  string       `json:"final_status"`
	FinalBalance string       `json:"final_balance"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, exec engine.Executor) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, exec)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		FinalStatus:  result.FinalStatus,
		FinalBalance: result.FinalBalance,
		Trace:        result.Trace,
	}
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, append(data, '\n'))

	return result, nil
}
