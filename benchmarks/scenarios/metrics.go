// ABOUTME: Scoring for pipeline benchmark scenarios
// ABOUTME: Intent accuracy, outcome accuracy and final store size per scenario

package scenarios

import (
	"fmt"
	"strings"

	"github.com/harper/agenda/internal/models"
)

// PassThreshold is the minimum intent and outcome accuracy for a PASS
const PassThreshold = 0.9

// TurnResult is the scored outcome of one turn
type TurnResult struct {
	Utterance     string               `json:"utterance"`
	TaskType      models.TaskType      `json:"task_type,omitempty"`
	OperationType models.OperationType `json:"operation_type,omitempty"`
	Status        models.OutcomeStatus `json:"status"`
	Message       string               `json:"message,omitempty"`
	IntentOK      bool                 `json:"intent_ok"`
	OutcomeOK     bool                 `json:"outcome_ok"`
	Problems      []string             `json:"problems,omitempty"`
}

// Result is the scored outcome of one scenario
type Result struct {
	ScenarioID      string       `json:"scenario_id"`
	ScenarioName    string       `json:"scenario_name"`
	IntentAccuracy  float64      `json:"intent_accuracy"`
	OutcomeAccuracy float64      `json:"outcome_accuracy"`
	StoreCorrect    bool         `json:"store_correct"`
	FinalItems      int          `json:"final_items"`
	OverallScore    float64      `json:"overall_score"`
	Status          string       `json:"status"`
	Turns           []TurnResult `json:"turns"`
}

// ScoreTurn compares one outcome against its expectation
func ScoreTurn(turn Turn, out models.Outcome) TurnResult {
	tr := TurnResult{
		Utterance:     turn.Utterance,
		TaskType:      out.TaskType,
		OperationType: out.OperationType,
		Status:        out.Status,
		Message:       out.Message,
	}
	exp := turn.Expect

	tr.IntentOK = out.TaskType == exp.Task && out.OperationType == exp.Operation
	if !tr.IntentOK {
		tr.Problems = append(tr.Problems, fmt.Sprintf("intent %s/%s, want %s/%s",
			out.TaskType, out.OperationType, exp.Task, exp.Operation))
	}

	tr.OutcomeOK = true
	if out.Status != exp.Status {
		tr.OutcomeOK = false
		tr.Problems = append(tr.Problems, fmt.Sprintf("status %s, want %s", out.Status, exp.Status))
	}
	if exp.Rows >= 0 && len(out.Data) != exp.Rows {
		tr.OutcomeOK = false
		tr.Problems = append(tr.Problems, fmt.Sprintf("%d rows, want %d", len(out.Data), exp.Rows))
	}
	for _, want := range exp.Contains {
		if !rowsContain(out.Data, want) {
			tr.OutcomeOK = false
			tr.Problems = append(tr.Problems, fmt.Sprintf("no row mentions %q", want))
		}
	}
	return tr
}

// Evaluate scores a finished scenario
func Evaluate(s Scenario, turns []TurnResult, finalItems int) Result {
	res := Result{
		ScenarioID:   s.ID,
		ScenarioName: s.Name,
		FinalItems:   finalItems,
		StoreCorrect: finalItems == s.FinalItems,
		Turns:        turns,
	}

	var intents, outcomes int
	for _, t := range turns {
		if t.IntentOK {
			intents++
		}
		if t.OutcomeOK {
			outcomes++
		}
	}
	if n := len(turns); n > 0 {
		res.IntentAccuracy = float64(intents) / float64(n)
		res.OutcomeAccuracy = float64(outcomes) / float64(n)
	}

	store := 0.0
	if res.StoreCorrect {
		store = 1
	}
	res.OverallScore = (res.IntentAccuracy + res.OutcomeAccuracy + store) / 3

	res.Status = "FAIL"
	if res.IntentAccuracy >= PassThreshold && res.OutcomeAccuracy >= PassThreshold && res.StoreCorrect {
		res.Status = "PASS"
	}
	return res
}

func rowsContain(rows []models.ItemRow, want string) bool {
	want = strings.ToLower(want)
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.DocumentText()), want) {
			return true
		}
	}
	return false
}
