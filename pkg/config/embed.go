package config

import (
	_ "embed"

	"github.com/arthur-debert/devplug/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// GetDefaultsContent returns the embedded defaults file.
func GetDefaultsContent() string {
	return string(defaultConfig)
}

// rawBytesProvider feeds the embedded defaults to koanf. Only the bytes
// path is used, with the TOML parser.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "defaults provider only supports ReadBytes")
}
