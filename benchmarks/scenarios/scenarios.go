// ABOUTME: Scenario data structures for end-to-end pipeline benchmarks
// ABOUTME: Defines utterance sequences with the intent and outcome each turn should produce

package scenarios

import (
	"fmt"

	"github.com/harper/agenda/internal/models"
)

// Scenario is a conversation replayed against a fresh agenda
type Scenario struct {
	ID          string
	Name        string
	Description string
	Turns       []Turn
	// FinalItems is the number of items the store should hold afterwards
	FinalItems int
}

// Turn is one utterance and what resolving it should yield
type Turn struct {
	Utterance string
	Expect    Expectation
}

// Expectation describes the outcome of one turn.
// An empty Task and Operation means the turn should fall through to chat.
type Expectation struct {
	Task      models.TaskType
	Operation models.OperationType
	Status    models.OutcomeStatus
	// Rows is the expected number of returned rows; negative skips the check
	Rows int
	// Contains lists substrings expected in some returned row's content
	Contains []string
}

// DailyReminder creates a recurring medication reminder
func DailyReminder() Scenario {
	return Scenario{
		ID:          "daily",
		Name:        "Daily reminder",
		Description: "A recurring schedule is created with a daily recurrence",
		Turns: []Turn{{
			Utterance: "remind me to take my medication every day at 9am",
			Expect: Expectation{
				Task:      models.TaskSchedule,
				Operation: models.OpCreate,
				Status:    models.OutcomeOK,
				Rows:      1,
				Contains:  []string{"medication"},
			},
		}},
		FinalItems: 1,
	}
}

// DeleteMiss deletes from an empty agenda
func DeleteMiss() Scenario {
	return Scenario{
		ID:          "delete-miss",
		Name:        "Delete without a match",
		Description: "Deleting something that does not exist succeeds with nothing removed",
		Turns: []Turn{{
			Utterance: "delete my dentist appointment",
			Expect: Expectation{
				Task:      models.TaskSchedule,
				Operation: models.OpDelete,
				Status:    models.OutcomeOK,
				Rows:      0,
			},
		}},
	}
}

// SmallTalk never touches the store
func SmallTalk() Scenario {
	return Scenario{
		ID:          "chat",
		Name:        "Small talk",
		Description: "Greetings fall through to a chat reply without a store call",
		Turns: []Turn{{
			Utterance: "hello, how are you today?",
			Expect:    Expectation{Status: models.OutcomeOK, Rows: 0},
		}},
	}
}

// EventLifecycle creates, reschedules, completes and finally deletes an event
func EventLifecycle() Scenario {
	return Scenario{
		ID:          "lifecycle",
		Name:        "Event lifecycle",
		Description: "One event moves through create, update, search and delete",
		Turns: []Turn{
			{
				Utterance: "schedule a team offsite on 2026-11-20 at 10am",
				Expect:    Expectation{Task: models.TaskSchedule, Operation: models.OpCreate, Status: models.OutcomeOK, Rows: 1, Contains: []string{"offsite"}},
			},
			{
				Utterance: "write a note that the offsite needs a projector",
				Expect:    Expectation{Task: models.TaskNote, Operation: models.OpCreate, Status: models.OutcomeOK, Rows: 1, Contains: []string{"projector"}},
			},
			{
				Utterance: "move the team offsite to 2pm",
				Expect:    Expectation{Task: models.TaskSchedule, Operation: models.OpUpdate, Status: models.OutcomeOK, Rows: -1},
			},
			{
				Utterance: "what events do I have about the offsite?",
				Expect:    Expectation{Task: models.TaskSchedule, Operation: models.OpSearch, Status: models.OutcomeOK, Rows: 1, Contains: []string{"offsite"}},
			},
			{
				Utterance: "cancel and delete the team offsite event",
				Expect:    Expectation{Task: models.TaskSchedule, Operation: models.OpDelete, Status: models.OutcomeOK, Rows: -1},
			},
		},
		FinalItems: 1,
	}
}

// All returns every built-in scenario
func All() []Scenario {
	return []Scenario{DailyReminder(), DeleteMiss(), SmallTalk(), EventLifecycle()}
}

// Lookup finds a built-in scenario by id
func Lookup(id string) (Scenario, error) {
	var ids []string
	for _, s := range All() {
		if s.ID == id {
			return s, nil
		}
		ids = append(ids, s.ID)
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q (valid options: %v)", id, ids)
}
