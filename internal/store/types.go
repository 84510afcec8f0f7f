package store

import "time"

// Snapshot is an index row for one immutable checkpoint. The full payload
// (config backups, fingerprints, capability sets) lives in the JSON file
// at SnapshotPath; the index row exists so snapshots can be looked up by
// id or phase without parsing payload files.
type Snapshot struct {
	ID            int64
	CreatedAt     time.Time
	Phase         int
	Description   string
	ArtifactCount int
	SnapshotPath  string
	Validated     bool
}

// RollbackOperation is an audit record of one restoration attempt.
// A row with a nil ConcludedAt belongs to a rollback that never finished:
// the process crashed mid-apply and startup recovery must deal with it.
type RollbackOperation struct {
	ID                 string
	StartedAt          time.Time
	ConcludedAt        *time.Time
	TargetSnapshotID   int64
	Reason             string
	Initiator          string // "system" or "operator"
	Success            bool
	AffectedComponents []string
	DataLossNotes      string
}

// PhaseState is the persisted position of the phase machine.
type PhaseState struct {
	CurrentPhase int
	HighestPhase int
	UpdatedAt    time.Time
}

// EvolutionRequest records a deliberate (non-reactive) phase advance request
// with its consent, risk, and review state.
type EvolutionRequest struct {
	ID               string
	RequestedAt      time.Time
	RequestedBy      string
	Kind             string // "major", "minor", "patch", "emergency"
	TargetComponents []string
	ConsentGranted   bool
	RiskScore        int // 0-10
	ReviewStatus     string
	RollbackPlan     string
}

// Review statuses for evolution requests. Applied is terminal: one
// approval authorizes exactly one advance.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
	ReviewApplied  = "applied"
)

// Initiators recorded on rollback operations.
const (
	InitiatorSystem   = "system"
	InitiatorOperator = "operator"
)
