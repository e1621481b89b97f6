package storage

const schema = `
-- Single row per preference key; values are stored as text.
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Favorite verses, keyed by the verse content id.
CREATE TABLE IF NOT EXISTS favorites (
    verse_id TEXT PRIMARY KEY,
    added_at INTEGER NOT NULL
);

-- Local donation ledger. consumed_at stays NULL until the purchase is consumed.
CREATE TABLE IF NOT EXISTS donations (
    token TEXT PRIMARY KEY,
    product_id TEXT NOT NULL,
    purchased_at INTEGER NOT NULL,
    consumed_at INTEGER
);
`
