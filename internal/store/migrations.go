package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Dates are stored as ISO-8601 UTC text (model.ISOLayout) so that
// lexicographic and chronological order agree.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS services (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	domain           TEXT NOT NULL,
	email_address    TEXT NOT NULL UNIQUE,
	category         TEXT NOT NULL DEFAULT 'other',
	priority         TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('high', 'medium', 'low')),
	status           TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'in_progress', 'migrated', 'skipped')),
	emails_received  INTEGER NOT NULL DEFAULT 0,
	first_email_date TEXT,
	last_email_date  TEXT,
	notes            TEXT NOT NULL DEFAULT '',
	old_email        TEXT,
	new_email        TEXT,
	migration_date   TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	id              TEXT PRIMARY KEY,
	service_id      TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	subject         TEXT NOT NULL DEFAULT '',
	sender          TEXT NOT NULL DEFAULT '',
	sender_email    TEXT NOT NULL,
	recipient_email TEXT NOT NULL DEFAULT '',
	received_at     TEXT NOT NULL,
	is_read         INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_runs (
	id             TEXT PRIMARY KEY,
	run_at         TEXT NOT NULL,
	emails_scanned INTEGER NOT NULL DEFAULT 0,
	services_found INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS migration_history (
	id         TEXT PRIMARY KEY,
	service_id TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	old_status TEXT NOT NULL,
	new_status TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	changed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_services_status ON services(status);
CREATE INDEX IF NOT EXISTS idx_services_category ON services(category);
CREATE INDEX IF NOT EXISTS idx_services_priority ON services(priority);
CREATE INDEX IF NOT EXISTS idx_emails_service_id ON emails(service_id);
CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at);
CREATE INDEX IF NOT EXISTS idx_scan_runs_run_at ON scan_runs(run_at);
CREATE INDEX IF NOT EXISTS idx_migration_history_service_id
	ON migration_history(service_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
