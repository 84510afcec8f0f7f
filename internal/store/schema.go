package store

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    phase INTEGER NOT NULL,
    description TEXT,
    artifact_count INTEGER,
    snapshot_path TEXT NOT NULL,
    validated BOOLEAN NOT NULL DEFAULT 0
);

-- target_snapshot_id is deliberately not a foreign key: the audit log is
-- append-only and must outlive snapshots removed by retention pruning.
CREATE TABLE IF NOT EXISTS rollback_operations (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    concluded_at TIMESTAMP,
    target_snapshot_id INTEGER NOT NULL,
    reason TEXT,
    initiator TEXT NOT NULL,
    success BOOLEAN,
    affected_components TEXT,
    data_loss_notes TEXT
);

CREATE TABLE IF NOT EXISTS phase_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    current_phase INTEGER NOT NULL,
    highest_phase INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS evolution_requests (
    id TEXT PRIMARY KEY,
    requested_at TIMESTAMP NOT NULL,
    requested_by TEXT NOT NULL,
    kind TEXT NOT NULL,
    target_components TEXT,
    consent_granted BOOLEAN NOT NULL DEFAULT 0,
    risk_score INTEGER NOT NULL,
    review_status TEXT NOT NULL DEFAULT 'pending',
    rollback_plan TEXT
);

CREATE INDEX IF NOT EXISTS idx_snapshots_phase ON snapshots(phase);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_rollback_started ON rollback_operations(started_at);
`
