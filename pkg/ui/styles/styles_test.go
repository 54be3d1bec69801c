package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/devplug/pkg/types"
)

func TestEmbeddedStyles(t *testing.T) {
	for _, name := range []string{"Header", "Success", "Error", "Warning", "Info", "Muted", "Bold", "PluginName", "FilePath"} {
		assert.True(t, Has(name), name)
	}
	assert.True(t, Get("Error").GetBold())
	assert.False(t, Has("Nope"))
}

func TestForStatus(t *testing.T) {
	tests := map[types.StepStatus]string{
		types.StatusInstalled:      "Success",
		types.StatusSucceeded:      "Success",
		types.StatusAlreadyPresent: "Muted",
		types.StatusDisabled:       "Muted",
		types.StatusWouldInstall:   "Info",
		types.StatusSkipped:        "Warning",
		types.StatusFailed:         "Error",
	}
	for st, want := range tests {
		assert.Equal(t, want, ForStatus(st), string(st))
		assert.True(t, Has(want))
	}
	assert.Contains(t, Status(types.StatusFailed, "failed"), "failed")
}

func TestLoadStylesFromData(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, LoadStylesFromData(embeddedStyles)) })

	require.NoError(t, LoadStylesFromData([]byte("colors:\n  c:\n    light: '#000'\n    dark: '#fff'\nstyles:\n  Only:\n    italic: true\n    foreground: c\n")))
	assert.True(t, Has("Only"))
	assert.True(t, Get("Only").GetItalic())
	assert.False(t, Has("Header"))

	assert.Error(t, LoadStylesFromData([]byte("colors: [")))
}
