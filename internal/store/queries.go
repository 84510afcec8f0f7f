package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a referenced snapshot, phase, operation, or
// request does not exist. Lookups report not-found instead of failing so
// callers can distinguish "missing" from a broken index.
var ErrNotFound = errors.New("not found")

// Snapshot index operations

// InsertSnapshot adds a snapshot index row and returns its id.
func (s *Store) InsertSnapshot(phase int, description string, artifactCount int, snapshotPath string) (int64, error) {
	query := `
		INSERT INTO snapshots (created_at, phase, description, artifact_count, snapshot_path, validated)
		VALUES (?, ?, ?, ?, ?, 0)
	`

	result, err := s.db.Exec(query,
		time.Now().Format(time.RFC3339Nano),
		phase,
		description,
		artifactCount,
		snapshotPath,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	return id, nil
}

// GetSnapshot retrieves a snapshot index row by id.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	query := `
		SELECT id, created_at, phase, description, artifact_count, snapshot_path, validated
		FROM snapshots
		WHERE id = ?
	`
	return s.scanSnapshot(s.db.QueryRow(query, id))
}

// GetSnapshotByPhase retrieves the most recent snapshot for a phase.
func (s *Store) GetSnapshotByPhase(phase int) (*Snapshot, error) {
	query := `
		SELECT id, created_at, phase, description, artifact_count, snapshot_path, validated
		FROM snapshots
		WHERE phase = ?
		ORDER BY id DESC
		LIMIT 1
	`
	return s.scanSnapshot(s.db.QueryRow(query, phase))
}

func (s *Store) scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string

	err := row.Scan(
		&snap.ID,
		&createdAt,
		&snap.Phase,
		&snap.Description,
		&snap.ArtifactCount,
		&snap.SnapshotPath,
		&snap.Validated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &snap, nil
}

// ListSnapshots returns all snapshot index rows, oldest first.
func (s *Store) ListSnapshots() ([]*Snapshot, error) {
	query := `
		SELECT id, created_at, phase, description, artifact_count, snapshot_path, validated
		FROM snapshots
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt string

		if err := rows.Scan(
			&snap.ID,
			&createdAt,
			&snap.Phase,
			&snap.Description,
			&snap.ArtifactCount,
			&snap.SnapshotPath,
			&snap.Validated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		snapshots = append(snapshots, &snap)
	}

	return snapshots, rows.Err()
}

// SnapshotPhases returns the distinct phase numbers currently held,
// ascending.
func (s *Store) SnapshotPhases() ([]int, error) {
	rows, err := s.db.Query(`SELECT DISTINCT phase FROM snapshots ORDER BY phase ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot phases: %w", err)
	}
	defer rows.Close()

	var phases []int
	for rows.Next() {
		var phase int
		if err := rows.Scan(&phase); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		phases = append(phases, phase)
	}

	return phases, rows.Err()
}

// MarkSnapshotValidated flips the validated flag once a rollback to the
// snapshot has been successfully tested. This is the only permitted
// mutation of an indexed snapshot.
func (s *Store) MarkSnapshotValidated(id int64) error {
	result, err := s.db.Exec(`UPDATE snapshots SET validated = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark snapshot validated: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check validated update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSnapshot removes a snapshot index row. Only retention pruning may
// call this; the payload file is the snapshot manager's responsibility.
func (s *Store) DeleteSnapshot(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot %d: %w", id, err)
	}
	return nil
}

// Rollback operation log

// InsertRollbackOperation records the start of a restoration attempt.
// The row stays unconcluded until ConcludeRollbackOperation runs; an
// unconcluded row surviving a restart marks a crashed rollback.
func (s *Store) InsertRollbackOperation(op *RollbackOperation) error {
	query := `
		INSERT INTO rollback_operations
		(id, started_at, target_snapshot_id, reason, initiator)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		op.ID,
		op.StartedAt.Format(time.RFC3339Nano),
		op.TargetSnapshotID,
		op.Reason,
		op.Initiator,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rollback operation: %w", err)
	}
	return nil
}

// ConcludeRollbackOperation finalizes a restoration attempt exactly once.
func (s *Store) ConcludeRollbackOperation(id string, success bool, affected []string, notes string) error {
	affectedJSON, err := json.Marshal(affected)
	if err != nil {
		return fmt.Errorf("failed to marshal affected components: %w", err)
	}

	query := `
		UPDATE rollback_operations
		SET concluded_at = ?, success = ?, affected_components = ?, data_loss_notes = ?
		WHERE id = ? AND concluded_at IS NULL
	`

	result, err := s.db.Exec(query,
		time.Now().Format(time.RFC3339Nano),
		success,
		string(affectedJSON),
		notes,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to conclude rollback operation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check conclusion update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rollback operation %s already concluded or missing", id)
	}
	return nil
}

// ListRollbackOperations returns the audit log, newest first, capped at
// limit (0 means no cap).
func (s *Store) ListRollbackOperations(limit int) ([]*RollbackOperation, error) {
	query := `
		SELECT id, started_at, concluded_at, target_snapshot_id, reason,
		       initiator, success, affected_components, data_loss_notes
		FROM rollback_operations
		ORDER BY started_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollback operations: %w", err)
	}
	defer rows.Close()

	var ops []*RollbackOperation
	for rows.Next() {
		op, err := scanRollbackOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

// FindUnconcludedOperations returns rollback operations that never
// concluded, which is evidence of a crash mid-rollback.
func (s *Store) FindUnconcludedOperations() ([]*RollbackOperation, error) {
	query := `
		SELECT id, started_at, concluded_at, target_snapshot_id, reason,
		       initiator, success, affected_components, data_loss_notes
		FROM rollback_operations
		WHERE concluded_at IS NULL
		ORDER BY started_at ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to find unconcluded operations: %w", err)
	}
	defer rows.Close()

	var ops []*RollbackOperation
	for rows.Next() {
		op, err := scanRollbackOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

func scanRollbackOperation(rows *sql.Rows) (*RollbackOperation, error) {
	var op RollbackOperation
	var startedAt string
	var concludedAt sql.NullString
	var success sql.NullBool
	var affectedJSON sql.NullString
	var notes sql.NullString

	if err := rows.Scan(
		&op.ID,
		&startedAt,
		&concludedAt,
		&op.TargetSnapshotID,
		&op.Reason,
		&op.Initiator,
		&success,
		&affectedJSON,
		&notes,
	); err != nil {
		return nil, fmt.Errorf("failed to scan rollback operation: %w", err)
	}

	var err error
	op.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	if concludedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, concludedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse concluded_at: %w", err)
		}
		op.ConcludedAt = &t
	}
	op.Success = success.Valid && success.Bool
	if affectedJSON.Valid && affectedJSON.String != "" {
		if err := json.Unmarshal([]byte(affectedJSON.String), &op.AffectedComponents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal affected components: %w", err)
		}
	}
	op.DataLossNotes = notes.String

	return &op, nil
}

// Phase state

// GetPhaseState returns the persisted phase machine position, or
// ErrNotFound before initialization.
func (s *Store) GetPhaseState() (*PhaseState, error) {
	query := `SELECT current_phase, highest_phase, updated_at FROM phase_state WHERE id = 1`

	var st PhaseState
	var updatedAt string

	err := s.db.QueryRow(query).Scan(&st.CurrentPhase, &st.HighestPhase, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase state: %w", err)
	}

	st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &st, nil
}

// SetPhaseState commits a new phase machine position.
func (s *Store) SetPhaseState(current, highest int) error {
	query := `
		INSERT INTO phase_state (id, current_phase, highest_phase, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_phase = excluded.current_phase,
			highest_phase = excluded.highest_phase,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.Exec(query, current, highest, time.Now().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to set phase state: %w", err)
	}
	return nil
}

// Evolution requests

// InsertEvolutionRequest records a deliberate phase advance request.
func (s *Store) InsertEvolutionRequest(req *EvolutionRequest) error {
	targetsJSON, err := json.Marshal(req.TargetComponents)
	if err != nil {
		return fmt.Errorf("failed to marshal target components: %w", err)
	}

	query := `
		INSERT INTO evolution_requests
		(id, requested_at, requested_by, kind, target_components, consent_granted, risk_score, review_status, rollback_plan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		req.ID,
		req.RequestedAt.Format(time.RFC3339Nano),
		req.RequestedBy,
		req.Kind,
		string(targetsJSON),
		req.ConsentGranted,
		req.RiskScore,
		req.ReviewStatus,
		req.RollbackPlan,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evolution request: %w", err)
	}
	return nil
}

// GetEvolutionRequest retrieves an evolution request by id.
func (s *Store) GetEvolutionRequest(id string) (*EvolutionRequest, error) {
	query := `
		SELECT id, requested_at, requested_by, kind, target_components, consent_granted, risk_score, review_status, rollback_plan
		FROM evolution_requests
		WHERE id = ?
	`

	var req EvolutionRequest
	var requestedAt string
	var targetsJSON sql.NullString

	err := s.db.QueryRow(query, id).Scan(
		&req.ID,
		&requestedAt,
		&req.RequestedBy,
		&req.Kind,
		&targetsJSON,
		&req.ConsentGranted,
		&req.RiskScore,
		&req.ReviewStatus,
		&req.RollbackPlan,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evolution request: %w", err)
	}

	req.RequestedAt, err = time.Parse(time.RFC3339Nano, requestedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse requested_at: %w", err)
	}
	if targetsJSON.Valid && targetsJSON.String != "" {
		if err := json.Unmarshal([]byte(targetsJSON.String), &req.TargetComponents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal target components: %w", err)
		}
	}

	return &req, nil
}

// ListEvolutionRequests returns all evolution requests, newest first.
func (s *Store) ListEvolutionRequests() ([]*EvolutionRequest, error) {
	query := `
		SELECT id, requested_at, requested_by, kind, target_components, consent_granted, risk_score, review_status, rollback_plan
		FROM evolution_requests
		ORDER BY requested_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list evolution requests: %w", err)
	}
	defer rows.Close()

	var reqs []*EvolutionRequest
	for rows.Next() {
		var req EvolutionRequest
		var requestedAt string
		var targetsJSON sql.NullString

		if err := rows.Scan(
			&req.ID,
			&requestedAt,
			&req.RequestedBy,
			&req.Kind,
			&targetsJSON,
			&req.ConsentGranted,
			&req.RiskScore,
			&req.ReviewStatus,
			&req.RollbackPlan,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evolution request: %w", err)
		}

		req.RequestedAt, err = time.Parse(time.RFC3339Nano, requestedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse requested_at: %w", err)
		}
		if targetsJSON.Valid && targetsJSON.String != "" {
			if err := json.Unmarshal([]byte(targetsJSON.String), &req.TargetComponents); err != nil {
				return nil, fmt.Errorf("failed to unmarshal target components: %w", err)
			}
		}

		reqs = append(reqs, &req)
	}

	return reqs, rows.Err()
}

// UpdateEvolutionReview sets the review decision on a pending request.
func (s *Store) UpdateEvolutionReview(id, status string) error {
	result, err := s.db.Exec(
		`UPDATE evolution_requests SET review_status = ? WHERE id = ? AND review_status = ?`,
		status, id, ReviewPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update evolution review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("evolution request %s is not pending review", id)
	}
	return nil
}

// MarkEvolutionApplied consumes an approved request. The transition is
// guarded in SQL so an approval can only ever authorize one advance.
func (s *Store) MarkEvolutionApplied(id string) error {
	result, err := s.db.Exec(
		`UPDATE evolution_requests SET review_status = ? WHERE id = ? AND review_status = ?`,
		ReviewApplied, id, ReviewApproved,
	)
	if err != nil {
		return fmt.Errorf("failed to mark evolution applied: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check applied update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("evolution request %s is not approved", id)
	}
	return nil
}
