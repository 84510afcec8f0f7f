package artifact

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes which capability variant is active per component and
// which capabilities are enabled at the current phase. It is captured
// verbatim into every snapshot.
type Profile struct {
	ComponentVersions   map[string]string `yaml:"component_versions"`
	EnabledCapabilities []string          `yaml:"enabled_capabilities"`
}

// ProfileProvider supplies the capability profile at capture time.
// Implementations belong to the host system; the file-backed provider
// below reads a YAML document maintained alongside the tracked artifacts.
type ProfileProvider interface {
	Profile() (*Profile, error)
}

// FileProfile reads the capability profile from a YAML file.
type FileProfile struct {
	path string
}

// NewFileProfile creates a profile provider backed by the YAML file at path.
func NewFileProfile(path string) *FileProfile {
	return &FileProfile{path: path}
}

// Profile parses the profile file. A missing file yields an empty profile
// rather than an error: a host with no declared components still gets
// baseline snapshots.
func (p *FileProfile) Profile() (*Profile, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{ComponentVersions: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if profile.ComponentVersions == nil {
		profile.ComponentVersions = map[string]string{}
	}

	return &profile, nil
}
