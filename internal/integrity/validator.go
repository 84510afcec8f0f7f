// Package integrity computes and compares content fingerprints for the
// tracked artifact set. Fingerprints are SHA-256: the surrounding system
// leans on them for tamper detection, not just corruption detection, so a
// cryptographic digest is required.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/blackwell-systems/phasegate/internal/artifact"
)

// Fingerprint returns the hex-encoded SHA-256 digest of artifact content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Result reports the outcome of validating recorded fingerprints against
// current artifact content.
type Result struct {
	Valid      bool
	Mismatches []string
}

// Validate recomputes the fingerprint of every artifact named in expected
// against its current content in the registry and reports mismatches,
// sorted by artifact name. An unreadable artifact counts as a mismatch:
// whether the content diverged or disappeared, the recorded state no
// longer matches reality.
func Validate(expected map[string]string, reg artifact.Registry) (*Result, error) {
	if reg == nil {
		return nil, fmt.Errorf("artifact registry is required")
	}

	result := &Result{Valid: true}

	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := reg.Read(name)
		if err != nil {
			result.Valid = false
			result.Mismatches = append(result.Mismatches, name)
			continue
		}
		if Fingerprint(content) != expected[name] {
			result.Valid = false
			result.Mismatches = append(result.Mismatches, name)
		}
	}

	return result, nil
}
