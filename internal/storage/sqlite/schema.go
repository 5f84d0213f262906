// ABOUTME: SQLite database schema for agenda storage
// ABOUTME: Three domain tables plus the embedding documents and reconcile log
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Recurrence rules shared by any number of items
CREATE TABLE IF NOT EXISTS recurrence (
    recurrence_id INTEGER PRIMARY KEY AUTOINCREMENT,
    recurrence_pattern TEXT NOT NULL
        CHECK (recurrence_pattern IN ('DAILY', 'WEEKLY', 'BIWEEKLY', 'MONTHLY')),
    recurrence_rule INTEGER NOT NULL,
    UNIQUE (recurrence_pattern, recurrence_rule)
);

-- Notes and events
CREATE TABLE IF NOT EXISTS item (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT,
    content TEXT NOT NULL,
    item_type TEXT NOT NULL CHECK (item_type IN ('NOTE', 'EVENT')),
    item_status TEXT NOT NULL DEFAULT 'ACTIVE'
        CHECK (item_status IN ('ACTIVE', 'CANCELLED', 'COMPLETED')),
    recurrence_id INTEGER REFERENCES recurrence(recurrence_id) ON DELETE SET NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Calendar placement, one per EVENT item
CREATE TABLE IF NOT EXISTS schedule (
    schedule_id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL UNIQUE REFERENCES item(item_id) ON DELETE CASCADE,
    start_date TEXT NOT NULL,
    start_time TEXT,
    end_date TEXT,
    end_time TEXT
);

-- Embedding documents for the sqlite index backend
CREATE TABLE IF NOT EXISTS documents (
    doc_id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    metadata TEXT,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Index writes that failed after the relational write committed
CREATE TABLE IF NOT EXISTS reconcile_tasks (
    id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,
    item_ids TEXT NOT NULL,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_item_type ON item(item_type);
CREATE INDEX IF NOT EXISTS idx_item_status ON item(item_status);
CREATE INDEX IF NOT EXISTS idx_item_recurrence ON item(recurrence_id);
CREATE INDEX IF NOT EXISTS idx_schedule_start ON schedule(start_date);
CREATE INDEX IF NOT EXISTS idx_reconcile_pending ON reconcile_tasks(resolved_at);
`
