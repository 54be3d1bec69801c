package types

import "time"

// ProbeSpec describes a generic presence check for steps whose kind has no
// built-in probe. The first non-empty field wins: Command is looked up on
// PATH, Path must exist, Check is a shell command that must exit 0.
type ProbeSpec struct {
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Check   string `yaml:"check,omitempty" json:"check,omitempty"`
}

// IsZero reports whether no probe was configured.
func (p ProbeSpec) IsZero() bool {
	return p.Command == "" && p.Path == "" && p.Check == ""
}

// InstallStep is a named, idempotent installation unit declared by a plugin
// manifest. Steps are read once per run and never mutated.
type InstallStep struct {
	Name       string
	Plugin     string
	PluginRoot string
	Category   string
	Kind       string
	Enabled    bool
	DependsOn  []string
	Params     map[string]interface{}
	Probe      ProbeSpec
}

// ID returns the step identifier unique across plugins.
func (s InstallStep) ID() string {
	if s.Plugin == "" {
		return s.Name
	}
	return s.Plugin + "/" + s.Name
}

// StepStatus is the outcome of ensuring a step or running a hook.
type StepStatus string

const (
	StatusInstalled      StepStatus = "installed"
	StatusAlreadyPresent StepStatus = "already-present"
	StatusWouldInstall   StepStatus = "would-install"
	StatusSucceeded      StepStatus = "succeeded"
	StatusSkipped        StepStatus = "skipped"
	StatusDisabled       StepStatus = "disabled"
	StatusFailed         StepStatus = "failed"
)

// IsSatisfied reports whether dependents of a step with this status may run.
func (s StepStatus) IsSatisfied() bool {
	switch s {
	case StatusInstalled, StatusAlreadyPresent, StatusSucceeded, StatusWouldInstall:
		return true
	}
	return false
}

// StepResult records what happened to one step or hook during a run.
type StepResult struct {
	Name     string        `json:"name"`
	Plugin   string        `json:"plugin,omitempty"`
	Category string        `json:"category"`
	Status   StepStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
