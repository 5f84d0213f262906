// ABOUTME: Item storage operations over the item, schedule and recurrence tables
// ABOUTME: Writes are transactional; date filters are resolved before comparison
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/datetime"
	"github.com/harper/agenda/internal/models"
)

// ItemStore handles item persistence
type ItemStore struct {
	db       *DB
	resolver *datetime.Resolver
	logger   *zap.Logger
}

// NewItemStore creates a new ItemStore
func NewItemStore(db *DB, resolver *datetime.Resolver, logger *zap.Logger) *ItemStore {
	if resolver == nil {
		resolver = datetime.NewResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemStore{db: db, resolver: resolver, logger: logger}
}

// CreateItem stores a note or event built from extracted slots.
// The item is an EVENT iff a start date was extracted.
func (s *ItemStore) CreateItem(ctx context.Context, slots models.Slots) (*models.ItemRow, error) {
	content := strings.TrimSpace(slots.Content)
	if content == "" {
		return nil, models.ErrMissingContent
	}

	itemType := models.ItemTypeNote
	if slots.StartDate != "" {
		itemType = models.ItemTypeEvent
	}

	today := s.resolver.Today()
	start := today
	startResolved := true
	if itemType == models.ItemTypeEvent {
		t, ok := s.resolver.Resolve(slots.StartDate)
		if ok {
			start = t
		} else {
			startResolved = false
		}
	}

	var (
		pattern models.RecurrencePattern
		rule    int
	)
	if slots.RecurrencePattern != "" {
		var err error
		pattern, rule, err = datetime.NormalizeRecurrence(slots.RecurrencePattern, slots.RecurrenceRule, start)
		if err != nil {
			return nil, err
		}
		if !startResolved {
			start = datetime.NextOccurrence(pattern, rule, today)
			startResolved = true
		}
	}
	if !startResolved {
		return nil, fmt.Errorf("%w: %q", models.ErrUnresolvedDate, slots.StartDate)
	}

	var sched *models.Schedule
	if itemType == models.ItemTypeEvent {
		sched = &models.Schedule{
			StartDate: start.Format(datetime.DateLayout),
			StartTime: s.resolveTime(slots.StartTime),
			EndDate:   s.resolveDate(slots.EndDate),
			EndTime:   s.resolveTime(slots.EndTime),
		}
	}

	var itemID int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var recurrenceID sql.NullInt64
		if pattern != "" {
			id, err := upsertRecurrence(ctx, tx, pattern, rule)
			if err != nil {
				return err
			}
			recurrenceID = sql.NullInt64{Int64: id, Valid: true}
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO item (title, content, item_type, item_status, recurrence_id, created_at, updated_at)
			VALUES (NULL, ?, ?, ?, ?, ?, ?)
		`, content, string(itemType), string(models.StatusActive), recurrenceID, now, now)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		itemID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("item id: %w", err)
		}

		if sched != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO schedule (item_id, start_date, start_time, end_date, end_time)
				VALUES (?, ?, ?, ?, ?)
			`, itemID, sched.StartDate, nullString(sched.StartTime),
				nullString(sched.EndDate), nullString(sched.EndTime)); err != nil {
				return fmt.Errorf("insert schedule: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create item failed", zap.Error(err))
		return nil, fmt.Errorf("create item: %w", err)
	}

	rows, err := s.GetItems(ctx, models.ItemFilter{ItemIDs: []int64{itemID}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("item %d: %w", itemID, models.ErrNotFound)
	}
	return &rows[0], nil
}

// GetItems returns flattened rows matching every set filter field.
// Schedule and recurrence joins become inner joins when a filter needs them,
// so notes drop out of date-filtered queries.
func (s *ItemStore) GetItems(ctx context.Context, f models.ItemFilter) ([]models.ItemRow, error) {
	if f.ItemIDs != nil && len(f.ItemIDs) == 0 {
		return []models.ItemRow{}, nil
	}

	var (
		where          []string
		args           []any
		needSchedule   bool
		needRecurrence bool
	)

	if len(f.ItemIDs) > 0 {
		where = append(where, "i.item_id IN ("+placeholders(len(f.ItemIDs))+")")
		args = appendIDs(args, f.ItemIDs)
	}
	if f.ItemType != "" {
		where = append(where, "i.item_type = ?")
		args = append(args, string(f.ItemType))
	}
	if f.ItemStatus != "" {
		where = append(where, "i.item_status = ?")
		args = append(args, string(f.ItemStatus))
	}
	if f.Title != "" {
		where = append(where, `i.title LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Title))
	}
	if f.Content != "" {
		where = append(where, `i.content LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Content))
	}

	scheduleCols := []struct {
		raw, column string
		date        bool
	}{
		{f.StartDate, "s.start_date", true},
		{f.StartTime, "s.start_time", false},
		{f.EndDate, "s.end_date", true},
		{f.EndTime, "s.end_time", false},
	}
	for _, c := range scheduleCols {
		if c.raw == "" {
			continue
		}
		var v string
		if c.date {
			v = s.resolveDate(c.raw)
		} else {
			v = s.resolveTime(c.raw)
		}
		if v == "" {
			s.logger.Debug("dropping unresolvable filter", zap.String("column", c.column), zap.String("value", c.raw))
			continue
		}
		where = append(where, c.column+" = ?")
		args = append(args, v)
		needSchedule = true
	}

	if f.SearchTimeFrame != "" {
		if start, end, ok := s.resolver.ResolveTimeframe(f.SearchTimeFrame); ok {
			where = append(where, "s.start_date BETWEEN ? AND ?")
			args = append(args, start, end)
			needSchedule = true
		}
	}

	if f.RecurrencePattern != "" {
		p, err := models.ParseRecurrencePattern(f.RecurrencePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidFilter, err)
		}
		where = append(where, "r.recurrence_pattern = ?")
		args = append(args, string(p))
		needRecurrence = true
	}
	if f.RecurrenceRule != nil {
		where = append(where, "r.recurrence_rule = ?")
		args = append(args, *f.RecurrenceRule)
		needRecurrence = true
	}

	query := `
		SELECT i.item_id, i.title, i.content, i.item_type, i.item_status, i.recurrence_id,
		       i.created_at, i.updated_at,
		       s.schedule_id, s.start_date, s.start_time, s.end_date, s.end_time,
		       r.recurrence_id, r.recurrence_pattern, r.recurrence_rule
		FROM item i
		` + joinKind(needSchedule) + ` JOIN schedule s ON s.item_id = i.item_id
		` + joinKind(needRecurrence) + ` JOIN recurrence r ON r.recurrence_id = i.recurrence_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY i.item_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanItemRows(rows)
}

// ListItems returns every item
func (s *ItemStore) ListItems(ctx context.Context) ([]models.ItemRow, error) {
	return s.GetItems(ctx, models.ItemFilter{})
}

// UpdateItems writes the non-empty fields of upd to every item in ids.
// Giving a start date to a note adds its schedule and makes it an EVENT.
// Returns the number of items touched.
func (s *ItemStore) UpdateItems(ctx context.Context, ids []int64, upd models.ItemUpdate) (int64, error) {
	if len(ids) == 0 || upd.IsEmpty() {
		return 0, nil
	}

	var (
		itemSets  []string
		itemArgs  []any
		schedSets []string
		schedArgs []any
	)
	if upd.Title != "" {
		itemSets = append(itemSets, "title = ?")
		itemArgs = append(itemArgs, upd.Title)
	}
	if upd.Content != "" {
		itemSets = append(itemSets, "content = ?")
		itemArgs = append(itemArgs, upd.Content)
	}
	if upd.ItemStatus != "" {
		itemSets = append(itemSets, "item_status = ?")
		itemArgs = append(itemArgs, string(upd.ItemStatus))
	}

	startDate := s.resolveDate(upd.StartDate)
	startTime := s.resolveTime(upd.StartTime)
	endDate := s.resolveDate(upd.EndDate)
	endTime := s.resolveTime(upd.EndTime)
	for _, c := range []struct{ column, value string }{
		{"start_date", startDate},
		{"start_time", startTime},
		{"end_date", endDate},
		{"end_time", endTime},
	} {
		if c.value != "" {
			schedSets = append(schedSets, c.column+" = ?")
			schedArgs = append(schedArgs, c.value)
		}
	}
	if startDate != "" {
		itemSets = append(itemSets, "item_type = ?")
		itemArgs = append(itemArgs, string(models.ItemTypeEvent))
	}

	var (
		pattern models.RecurrencePattern
		rule    int
	)
	if upd.RecurrencePattern != "" {
		ref := s.resolver.Today()
		if t, ok := s.resolver.Resolve(upd.StartDate); ok {
			ref = t
		}
		var err error
		pattern, rule, err = datetime.NormalizeRecurrence(upd.RecurrencePattern, upd.RecurrenceRule, ref)
		if err != nil {
			return 0, err
		}
	}

	if len(itemSets) == 0 && len(schedSets) == 0 && pattern == "" {
		return 0, nil
	}

	var affected int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if pattern != "" {
			id, err := upsertRecurrence(ctx, tx, pattern, rule)
			if err != nil {
				return err
			}
			itemSets = append(itemSets, "recurrence_id = ?")
			itemArgs = append(itemArgs, id)
		}

		itemSets = append(itemSets, "updated_at = ?")
		itemArgs = append(itemArgs, time.Now())
		in := placeholders(len(ids))

		res, err := tx.ExecContext(ctx,
			"UPDATE item SET "+strings.Join(itemSets, ", ")+" WHERE item_id IN ("+in+")",
			appendIDs(itemArgs, ids)...)
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if affected, err = res.RowsAffected(); err != nil {
			return err
		}

		if len(schedSets) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE schedule SET "+strings.Join(schedSets, ", ")+" WHERE item_id IN ("+in+")",
			appendIDs(schedArgs, ids)...); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		if startDate == "" {
			return nil
		}
		args := []any{startDate, nullString(startTime), nullString(endDate), nullString(endTime)}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule (item_id, start_date, start_time, end_date, end_time)
			SELECT item_id, ?, ?, ?, ? FROM item
			WHERE item_id IN (`+in+`)
			  AND item_id NOT IN (SELECT item_id FROM schedule)
		`, appendIDs(args, ids)...); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("update items failed", zap.Int64s("item_ids", ids), zap.Error(err))
		return 0, fmt.Errorf("update items: %w", err)
	}
	return affected, nil
}

// DeleteItems removes items; schedules cascade and recurrences stay
func (s *ItemStore) DeleteItems(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM item WHERE item_id IN ("+placeholders(len(ids))+")",
			appendIDs(nil, ids)...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		s.logger.Error("delete items failed", zap.Int64s("item_ids", ids), zap.Error(err))
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return affected, nil
}

// PrimaryKey lists the declared primary-key columns of the kind's table
func (s *ItemStore) PrimaryKey(ctx context.Context, kind models.EntityKind) ([]string, error) {
	table := kind.TableName()
	if table == "" {
		return nil, fmt.Errorf("unknown entity kind %d", kind)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Count returns the number of rows in the kind's table
func (s *ItemStore) Count(ctx context.Context, kind models.EntityKind) (int, error) {
	table := kind.TableName()
	if table == "" {
		return 0, fmt.Errorf("unknown entity kind %d", kind)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

func (s *ItemStore) resolveDate(text string) string {
	if text == "" {
		return ""
	}
	d, _ := s.resolver.ResolveDate(text)
	return d
}

func (s *ItemStore) resolveTime(text string) string {
	if text == "" {
		return ""
	}
	t, _ := s.resolver.ResolveTime(text)
	return t
}

func upsertRecurrence(ctx context.Context, tx *sql.Tx, p models.RecurrencePattern, rule int) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recurrence (recurrence_pattern, recurrence_rule)
		VALUES (?, ?)
		ON CONFLICT(recurrence_pattern, recurrence_rule) DO NOTHING
	`, string(p), rule); err != nil {
		return 0, fmt.Errorf("insert recurrence: %w", err)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT recurrence_id FROM recurrence
		WHERE recurrence_pattern = ? AND recurrence_rule = ?
	`, string(p), rule).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("recurrence %s/%d: %w", p, rule, models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup recurrence: %w", err)
	}
	return id, nil
}

func scanItemRows(rows *sql.Rows) ([]models.ItemRow, error) {
	result := []models.ItemRow{}

	for rows.Next() {
		var (
			row          models.ItemRow
			title        sql.NullString
			recurrenceID sql.NullInt64
			scheduleID   sql.NullInt64
			startDate    sql.NullString
			startTime    sql.NullString
			endDate      sql.NullString
			endTime      sql.NullString
			recID        sql.NullInt64
			pattern      sql.NullString
			rule         sql.NullInt64
		)

		if err := rows.Scan(&row.ItemID, &title, &row.Content, &row.ItemType, &row.ItemStatus,
			&recurrenceID, &row.CreatedAt, &row.UpdatedAt,
			&scheduleID, &startDate, &startTime, &endDate, &endTime,
			&recID, &pattern, &rule); err != nil {
			return nil, err
		}

		row.Title = title.String
		if recurrenceID.Valid {
			id := recurrenceID.Int64
			row.RecurrenceID = &id
		}
		if scheduleID.Valid {
			row.Schedule = &models.Schedule{
				ScheduleID: scheduleID.Int64,
				ItemID:     row.ItemID,
				StartDate:  startDate.String,
				StartTime:  startTime.String,
				EndDate:    endDate.String,
				EndTime:    endTime.String,
			}
		}
		if recID.Valid {
			row.Recurrence = &models.Recurrence{
				RecurrenceID: recID.Int64,
				Pattern:      models.RecurrencePattern(pattern.String),
				Rule:         int(rule.Int64),
			}
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

func joinKind(inner bool) string {
	if inner {
		return "INNER"
	}
	return "LEFT"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendIDs(args []any, ids []int64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// nullString converts empty string to NULL for optional columns
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
