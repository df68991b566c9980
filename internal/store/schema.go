package store

// schema contains the SQL statements to create the strata cache schema.
const schema = `
-- Extracted facts per analysed file
CREATE TABLE IF NOT EXISTS file_facts (
    filepath       TEXT PRIMARY KEY,
    content_hash   TEXT NOT NULL,
    schema_version INTEGER NOT NULL,
    facts          BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_facts_version ON file_facts(schema_version);

-- Metadata table for cache info
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
