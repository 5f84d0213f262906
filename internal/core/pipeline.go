// ABOUTME: ResolutionPipeline turning one utterance into store mutations and an outcome
// ABOUTME: Relational writes commit first; failed index writes are logged for reconciliation
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

// errNoUpdateFields is reported when an update carries nothing writable
var errNoUpdateFields = errors.New("no fields to update: give a new status, date, time or recurrence")

// RecordStore is the relational side of the pipeline
type RecordStore interface {
	CreateItem(ctx context.Context, slots models.Slots) (*models.ItemRow, error)
	GetItems(ctx context.Context, f models.ItemFilter) ([]models.ItemRow, error)
	UpdateItems(ctx context.Context, ids []int64, upd models.ItemUpdate) (int64, error)
	DeleteItems(ctx context.Context, ids []int64) (int64, error)
}

// SemanticIndex is the vector side of the pipeline
type SemanticIndex interface {
	Add(ctx context.Context, rows []models.ItemRow) error
	Remove(ctx context.Context, ids []int64) error
	Replace(ctx context.Context, rows []models.ItemRow) error
	Search(ctx context.Context, query string, filter map[string]string) ([]models.Match, error)
	Persist(ctx context.Context) error
}

// ReconcileLog records index writes that must be replayed
type ReconcileLog interface {
	Record(ctx context.Context, task *models.ReconcileTask) error
}

// Pipeline resolves utterances end to end
type Pipeline struct {
	classifier *Classifier
	extractor  *Extractor
	store      RecordStore
	index      SemanticIndex
	reconcile  ReconcileLog
	logger     *zap.Logger
}

// NewPipeline wires the pipeline. reconcile may be nil, in which case
// failed index writes are only logged.
func NewPipeline(classifier *Classifier, extractor *Extractor, store RecordStore, index SemanticIndex, reconcile ReconcileLog, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		store:      store,
		index:      index,
		reconcile:  reconcile,
		logger:     logger,
	}
}

// run carries the state of one resolution
type run struct {
	out    models.Outcome
	logger *zap.Logger
}

func (r *run) enter(s models.State) {
	r.out.Trace = append(r.out.Trace, s)
}

func (r *run) finish(status models.OutcomeStatus, msg string) models.Outcome {
	r.out.Status = status
	r.out.Message = msg
	r.enter(models.StateResponded)
	return r.out
}

func (r *run) fail(err error) models.Outcome {
	r.logger.Error("pipeline run failed", zap.Error(err))
	return r.finish(models.OutcomeError, err.Error())
}

// Resolve processes one utterance. Every failure is reported through the
// outcome status; history is passed to slot extraction as context.
func (p *Pipeline) Resolve(ctx context.Context, utterance string, history []models.Message) models.Outcome {
	r := &run{out: models.Outcome{RunID: uuid.NewString()}}
	r.logger = p.logger.With(zap.String("run_id", r.out.RunID))
	r.enter(models.StateStart)

	intent, err := p.classifier.Classify(ctx, utterance)
	r.enter(models.StateClassified)
	if err != nil {
		return r.fail(err)
	}
	r.out.TaskType = intent.Task
	r.out.OperationType = intent.Operation
	r.logger = r.logger.With(
		zap.String("task_type", string(intent.Task)),
		zap.String("operation_type", string(intent.Operation)))
	if !intent.Actionable() {
		r.logger.Debug("no actionable intent, falling back to chat")
		return r.finish(models.OutcomeOK, "")
	}

	slots, err := p.extractor.Extract(ctx, utterance, intent.Task, history)
	if err != nil {
		return r.fail(err)
	}
	r.out.Slots = &slots
	r.enter(models.StateExtracted)

	var candidates []models.ItemRow
	var upd models.ItemUpdate
	if intent.Operation == models.OpUpdate {
		upd = DeriveUpdate(slots)
		if upd.IsEmpty() {
			r.enter(models.StateDisambiguated)
			return r.finish(models.OutcomeError, errNoUpdateFields.Error())
		}
	}
	if intent.Operation != models.OpCreate {
		candidates, err = p.disambiguate(ctx, utterance, intent, constraintSlots(slots, upd))
		if err != nil {
			r.enter(models.StateDisambiguated)
			return r.fail(err)
		}
	}
	r.enter(models.StateDisambiguated)

	if intent.Operation != models.OpCreate && len(candidates) == 0 {
		r.logger.Info("nothing matched")
		return r.finish(models.OutcomeOK, nothingMatched(intent))
	}

	var msg string
	switch intent.Operation {
	case models.OpCreate:
		msg, err = p.create(ctx, r, slots)
	case models.OpDelete:
		msg, err = p.delete(ctx, r, candidates)
	case models.OpUpdate:
		msg, err = p.update(ctx, r, candidates, upd)
	case models.OpSearch:
		r.out.Data = candidates
		msg = fmt.Sprintf("found %d %s", len(candidates), plural(len(candidates), "item"))
	default:
		err = fmt.Errorf("unsupported operation %q", intent.Operation)
	}
	r.enter(models.StateDispatched)
	if errors.Is(err, errNoUpdateFields) {
		return r.finish(models.OutcomeError, err.Error())
	}
	if err != nil {
		return r.fail(err)
	}
	return r.finish(models.OutcomeOK, msg)
}

// disambiguate narrows the utterance to live rows: semantic recall first,
// then the structured slots as a precision filter over that candidate set.
func (p *Pipeline) disambiguate(ctx context.Context, utterance string, intent models.Intent, slots models.Slots) ([]models.ItemRow, error) {
	var filter map[string]string
	if intent.Task == models.TaskSchedule {
		filter = map[string]string{"item_type": string(models.ItemTypeEvent)}
	}

	matches, err := p.index.Search(ctx, utterance, filter)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ItemID
	}

	rows, err := p.store.GetItems(ctx, models.FilterFromSlots(ids, slots))
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}
	return models.SortByRank(rows, ids), nil
}

func (p *Pipeline) create(ctx context.Context, r *run, slots models.Slots) (string, error) {
	row, err := p.store.CreateItem(ctx, slots)
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}
	r.out.Data = []models.ItemRow{*row}

	p.indexStep(ctx, r, models.OpCreate, []int64{row.ItemID}, func() error {
		return p.index.Add(ctx, []models.ItemRow{*row})
	})
	return fmt.Sprintf("created %s %d", strings.ToLower(string(row.ItemType)), row.ItemID), nil
}

func (p *Pipeline) delete(ctx context.Context, r *run, rows []models.ItemRow) (string, error) {
	ids := models.ItemIDs(rows)
	n, err := p.store.DeleteItems(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("delete items: %w", err)
	}
	r.out.Data = rows

	p.indexStep(ctx, r, models.OpDelete, ids, func() error {
		return p.index.Remove(ctx, ids)
	})
	return fmt.Sprintf("deleted %d %s", n, plural(int(n), "item")), nil
}

func (p *Pipeline) update(ctx context.Context, r *run, rows []models.ItemRow, upd models.ItemUpdate) (string, error) {
	ids := models.ItemIDs(rows)
	n, err := p.store.UpdateItems(ctx, ids, upd)
	if err != nil {
		return "", fmt.Errorf("update items: %w", err)
	}
	// none of the new values resolved, so nothing was written
	if n == 0 {
		r.out.Data = rows
		return "", errNoUpdateFields
	}

	p.indexStep(ctx, r, models.OpUpdate, ids, func() error {
		fresh, err := p.store.GetItems(ctx, models.ItemFilter{ItemIDs: ids})
		if err != nil {
			return fmt.Errorf("reload updated items: %w", err)
		}
		r.out.Data = fresh
		return p.index.Replace(ctx, fresh)
	})
	if r.out.Data == nil {
		r.out.Data = rows
	}
	return fmt.Sprintf("updated %d %s", n, plural(int(n), "item")), nil
}

// indexStep runs the index half of a write after the relational half has
// committed. A failure cannot roll back the committed write, so it is
// recorded as a reconcile task and the run still reports success.
func (p *Pipeline) indexStep(ctx context.Context, r *run, op models.OperationType, ids []int64, step func() error) {
	err := step()
	if err == nil {
		err = p.index.Persist(ctx)
	}
	if err == nil {
		return
	}

	r.logger.Warn("index write failed after commit",
		zap.Int64s("item_ids", ids), zap.Error(err))
	if p.reconcile == nil {
		return
	}
	task := &models.ReconcileTask{Operation: op, ItemIDs: ids, Error: err.Error()}
	if recErr := p.reconcile.Record(context.WithoutCancel(ctx), task); recErr != nil {
		r.logger.Error("failed to record reconcile task", zap.Error(recErr))
		return
	}
	r.out.Reconcile = append(r.out.Reconcile, task.TaskID)
	r.logger.Warn("reconcile task recorded", zap.String("task_id", task.TaskID))
}

// DeriveUpdate maps extracted slots onto the columns an update writes.
// The status comes from keywords in the content slot; temporal and
// recurrence slots are written as given.
func DeriveUpdate(s models.Slots) models.ItemUpdate {
	return models.ItemUpdate{
		ItemStatus:        statusFromText(s.Content),
		StartDate:         s.StartDate,
		StartTime:         s.StartTime,
		EndDate:           s.EndDate,
		EndTime:           s.EndTime,
		RecurrencePattern: s.RecurrencePattern,
		RecurrenceRule:    s.RecurrenceRule,
	}
}

// constraintSlots drops the slots an update is about to write, since they
// describe the new value rather than the record being targeted.
func constraintSlots(s models.Slots, upd models.ItemUpdate) models.Slots {
	if upd.StartDate != "" {
		s.StartDate = ""
	}
	if upd.StartTime != "" {
		s.StartTime = ""
	}
	if upd.EndDate != "" {
		s.EndDate = ""
	}
	if upd.EndTime != "" {
		s.EndTime = ""
	}
	if upd.RecurrencePattern != "" {
		s.RecurrencePattern = ""
		s.RecurrenceRule = nil
	}
	return s
}

var statusKeywords = []struct {
	word   string
	status models.ItemStatus
}{
	{"uncomplete", models.StatusActive},
	{"reopen", models.StatusActive},
	{"reactivate", models.StatusActive},
	{"cancel", models.StatusCancelled},
	{"complete", models.StatusCompleted},
	{"finished", models.StatusCompleted},
	{"done", models.StatusCompleted},
	{"active", models.StatusActive},
}

func statusFromText(text string) models.ItemStatus {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, kw := range statusKeywords {
		for _, w := range words {
			if strings.HasPrefix(w, kw.word) {
				return kw.status
			}
		}
	}
	return ""
}

func nothingMatched(intent models.Intent) string {
	noun := "item"
	if intent.Task == models.TaskSchedule {
		noun = "event"
	}
	switch intent.Operation {
	case models.OpDelete:
		return fmt.Sprintf("no matching %s found, nothing was deleted", noun)
	case models.OpUpdate:
		return fmt.Sprintf("no matching %s found, nothing was updated", noun)
	}
	return fmt.Sprintf("no matching %s found", noun)
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
