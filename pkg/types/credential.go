package types

// CredentialMode selects how a credential file yields its value(s).
type CredentialMode string

const (
	// CredentialFile reads the file and trims surrounding whitespace.
	CredentialFile CredentialMode = "file"
	// CredentialExec runs the file and uses its trimmed stdout.
	CredentialExec CredentialMode = "exec"
	// CredentialSource sources the file in bash and captures Vars.
	CredentialSource CredentialMode = "source"
)

// CredentialBinding maps a file in the credentials directory to one or more
// environment variables.
type CredentialBinding struct {
	Env        string            `yaml:"env,omitempty" json:"env,omitempty" validate:"omitempty,envname"`
	File       string            `yaml:"file" json:"file" validate:"required"`
	Mode       CredentialMode    `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=file exec source"`
	Vars       []string          `yaml:"vars,omitempty" json:"vars,omitempty" validate:"omitempty,dive,envname"`
	Default    string            `yaml:"default,omitempty" json:"default,omitempty"`
	Defaults   map[string]string `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	CertBundle string            `yaml:"cert_bundle,omitempty" json:"cert_bundle,omitempty"`
}

// EffectiveMode returns the binding mode, defaulting to CredentialFile.
func (b CredentialBinding) EffectiveMode() CredentialMode {
	if b.Mode == "" {
		return CredentialFile
	}
	return b.Mode
}
