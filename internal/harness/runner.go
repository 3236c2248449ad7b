package harness

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/actorlab/qdb/internal/engine"
	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/reorder"
	"github.com/actorlab/qdb/internal/snapshot"
)

// TraceEvent is one executed message in the scenario trace.
type TraceEvent struct {
	MessageID int64  `json:"message_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	ExitCode  int32  `json:"exit_code"`
	LT        uint64 `json:"lt"`
	Balance   string `json:"balance"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists every executed message in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failure messages. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalStatus and FinalBalance describe the state after the last step.
	FinalStatus  string `json:"final_status"`
	FinalBalance string `json:"final_balance"`

	// PendingLen is the number of messages still pending after the last step.
	PendingLen int `json:"pending_len"`
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario against a fresh session. Step failures abort the
// run and return an error; assertion failures are collected in the result.
func Run(scenario *Scenario, exec engine.Executor) (*Result, error) {
	stateData, err := os.ReadFile(scenario.State)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	state, err := snapshot.DecodeState(stateData)
	if err != nil {
		return nil, err
	}

	queueData, err := os.ReadFile(scenario.Queue)
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	msgs, err := snapshot.DecodeMessages(queueData)
	if err != nil {
		return nil, err
	}

	session := engine.NewSession(state)
	if err := session.LoadQueue(msgs); err != nil {
		return nil, err
	}

	var opts []engine.DriverOption
	if scenario.RunLimit > 0 {
		opts = append(opts, engine.WithRunLimit(scenario.RunLimit))
	}
	driver := engine.NewDriver(session, exec, opts...)

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := runStep(ctx, driver, session, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result := buildResult(session)
	for _, a := range scenario.Assertions {
		checkAssertion(result, session, a)
	}
	return result, nil
}

func runStep(ctx context.Context, driver *engine.Driver, session *engine.Session, step Step) error {
	switch {
	case step.Run == "next":
		_, err := driver.RunNext(ctx)
		return err
	case step.Run == "all":
		_, err := driver.RunAll(ctx)
		return err
	case step.Run != "":
		id, err := strconv.ParseInt(step.Run, 10, 64)
		if err != nil {
			return fmt.Errorf("bad run target %q: %w", step.Run, err)
		}
		_, err = driver.RunByID(ctx, id)
		return err

	case step.Reorder != "":
		policy, err := policyFor(step)
		if err != nil {
			return err
		}
		return session.Reorder(policy)

	case step.Script != "":
		if err := session.SetScript(step.Script); err != nil {
			return err
		}
		return session.ApplyScript()
	}
	return fmt.Errorf("empty step")
}

func policyFor(step Step) (reorder.Policy, error) {
	switch step.Reorder {
	case "identity":
		return reorder.Identity{}, nil
	case "reverse":
		return reorder.Reverse{}, nil
	case "sort":
		return reorder.PrioritySort{}, nil
	case "shuffle":
		return reorder.NewShuffle(step.Seed), nil
	default:
		return nil, fmt.Errorf("unknown reorder policy %q", step.Reorder)
	}
}

func buildResult(session *engine.Session) *Result {
	executed := session.ExecutedMessages()
	txs := session.Transactions()
	states := session.StateHistory()

	result := &Result{
		Pass:         true,
		Trace:        []TraceEvent{},
		FinalStatus:  session.CurrentState().Status().String(),
		FinalBalance: session.CurrentState().Balance().String(),
		PendingLen:   session.PendingLen(),
	}

	kinds := make(map[int64]msg.Kind, len(executed))
	for _, m := range executed {
		kinds[m.ID] = m.Kind
	}
	for _, tx := range txs {
		ev := TraceEvent{
			MessageID: tx.MessageID,
			Kind:      kinds[tx.MessageID].String(),
			Status:    tx.Status.String(),
			ExitCode:  tx.ExitCode,
			LT:        tx.Ref.LT,
		}
		if tx.StateIndex >= 0 && tx.StateIndex < len(states) {
			ev.Balance = states[tx.StateIndex].Balance().String()
		}
		result.Trace = append(result.Trace, ev)
	}
	return result
}

func checkAssertion(result *Result, session *engine.Session, a Assertion) {
	switch a.Type {
	case AssertExecutedCount:
		if got := len(session.ExecutedMessages()); got != a.Count {
			result.AddError(fmt.Sprintf("executed_count: got %d, want %d", got, a.Count))
		}
	case AssertQueueLen:
		if got := session.PendingLen(); got != a.Count {
			result.AddError(fmt.Sprintf("queue_len: got %d, want %d", got, a.Count))
		}
	case AssertFinalBalance:
		if got := session.CurrentState().Balance().String(); got != a.Balance {
			result.AddError(fmt.Sprintf("final_balance: got %s, want %s", got, a.Balance))
		}
	case AssertFinalStatus:
		if got := session.CurrentState().Status().String(); got != a.Status {
			result.AddError(fmt.Sprintf("final_status: got %s, want %s", got, a.Status))
		}
	case AssertTxStatus:
		found := false
		for _, tx := range session.Transactions() {
			if tx.MessageID == a.MessageID {
				found = true
				if got := tx.Status.String(); got != a.Status {
					result.AddError(fmt.Sprintf("tx_status[%d]: got %s, want %s", a.MessageID, got, a.Status))
				}
				break
			}
		}
		if !found {
			result.AddError(fmt.Sprintf("tx_status[%d]: no transaction recorded", a.MessageID))
		}
	}
}
