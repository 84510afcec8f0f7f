package phase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/store"
)

// Evolution kinds, in increasing order of inherent risk.
const (
	EvolutionPatch     = "patch"
	EvolutionMinor     = "minor"
	EvolutionMajor     = "major"
	EvolutionEmergency = "emergency"
)

// RiskScore estimates the risk of an evolution request on a 0-10 scale.
// Scoring components:
//   - Kind (base): patch=1, minor=3, major=6, emergency=8
//   - Breadth: +1 when three or more components are targeted
//   - Rollback plan: +2 when no plan is declared
func RiskScore(kind string, targetComponents []string, rollbackPlan string) (int, error) {
	var score int
	switch kind {
	case EvolutionPatch:
		score = 1
	case EvolutionMinor:
		score = 3
	case EvolutionMajor:
		score = 6
	case EvolutionEmergency:
		score = 8
	default:
		return 0, fmt.Errorf("unknown evolution kind %q", kind)
	}

	if len(targetComponents) >= 3 {
		score++
	}
	if rollbackPlan == "" {
		score += 2
	}
	if score > 10 {
		score = 10
	}

	return score, nil
}

// RequestEvolution records a deliberate phase-advance request with its
// computed risk score. The request starts pending review.
func (c *Controller) RequestEvolution(requestedBy, kind string, targets []string, consent bool, rollbackPlan string) (*store.EvolutionRequest, error) {
	score, err := RiskScore(kind, targets, rollbackPlan)
	if err != nil {
		return nil, err
	}

	req := &store.EvolutionRequest{
		ID:               uuid.NewString(),
		RequestedAt:      time.Now(),
		RequestedBy:      requestedBy,
		Kind:             kind,
		TargetComponents: targets,
		ConsentGranted:   consent,
		RiskScore:        score,
		ReviewStatus:     store.ReviewPending,
		RollbackPlan:     rollbackPlan,
	}

	if err := c.store.InsertEvolutionRequest(req); err != nil {
		return nil, err
	}

	c.log.Info("evolution requested",
		zap.String("request_id", req.ID),
		zap.String("kind", kind),
		zap.Int("risk_score", score),
	)
	return req, nil
}

// ReviewEvolution approves or rejects a pending request.
func (c *Controller) ReviewEvolution(id string, approve bool) error {
	status := store.ReviewRejected
	if approve {
		status = store.ReviewApproved
	}
	return c.store.UpdateEvolutionReview(id, status)
}

// ApplyEvolution performs the phase advance an approved request asked
// for, then consumes the request: one approval authorizes exactly one
// advance. Consent must have been granted, and the advance goes through
// the same gates as any other: refused while the emergency stop is
// engaged, and wrapped in the before/after snapshot pair.
func (c *Controller) ApplyEvolution(id string) error {
	req, err := c.store.GetEvolutionRequest(id)
	if err != nil {
		return err
	}

	if req.ReviewStatus != store.ReviewApproved {
		return fmt.Errorf("evolution request %s is %s, not approved", id, req.ReviewStatus)
	}
	if !req.ConsentGranted {
		return fmt.Errorf("evolution request %s has no consent granted", id)
	}

	if err := c.Advance(c.Current() + 1); err != nil {
		return err
	}

	if err := c.store.MarkEvolutionApplied(id); err != nil {
		return err
	}

	c.log.Info("evolution applied",
		zap.String("request_id", id),
		zap.Int("phase", c.Current()),
	)
	return nil
}
