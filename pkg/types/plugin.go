package types

import (
	"fmt"
	"time"
)

// PluginRegistryEntry is a registered plugin as persisted in the registry
// file. Names are unique.
type PluginRegistryEntry struct {
	Name         string    `yaml:"name" json:"name"`
	Path         string    `yaml:"path" json:"path"`
	Enabled      bool      `yaml:"enabled" json:"enabled"`
	Version      string    `yaml:"version,omitempty" json:"version,omitempty"`
	RegisteredAt time.Time `yaml:"registered_at" json:"registered_at"`
	UpdatedAt    time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Phase is a lifecycle hook phase.
type Phase string

const (
	PhaseUserSetup        Phase = "user-setup"
	PhasePreUp            Phase = "pre-up"
	PhasePostUp           Phase = "post-up"
	PhaseContainerStartup Phase = "container-startup"
	PhaseEnvSetup         Phase = "env-setup"
)

// AllPhases returns the phases in lifecycle order.
func AllPhases() []Phase {
	return []Phase{PhaseUserSetup, PhasePreUp, PhasePostUp, PhaseContainerStartup, PhaseEnvSetup}
}

// ScriptName is the hook file name for the phase inside a plugin's hooks dir.
func (p Phase) ScriptName() string {
	return string(p) + ".sh"
}

// ParsePhase converts a string into a known Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range AllPhases() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown hook phase %q", s)
}
