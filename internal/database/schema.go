package database

// schemas maps database names to their DDL. Each schema is idempotent via
// IF NOT EXISTS so Migrate can run on every startup.
var schemas = map[string]string{
	"ledger": ledgerSchema,
	"cache":  cacheSchema,
}

// ledgerSchema is the append-only harvest trail. Rows are never updated or
// deleted.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS harvests (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    region_id    TEXT    NOT NULL,
    terminal_id  INTEGER NOT NULL,
    register     INTEGER NOT NULL,
    ground       TEXT    NOT NULL,
    excited      TEXT    NOT NULL,
    outcome      TEXT    NOT NULL,
    probability  REAL    NOT NULL,
    purity       REAL    NOT NULL,
    value        INTEGER NOT NULL,
    harvested_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_harvests_region ON harvests(region_id, harvested_at);
`

// cacheSchema holds rebuildable state: the latest msgpack snapshot per
// region. One row per region, replaced on every write.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    region_id  TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    written_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`
