package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

// LogCapture collects JSON log lines written through the global logger.
type LogCapture struct {
	buf bytes.Buffer
}

// CaptureLogs points the global logger at a buffer at trace level until the
// test ends. Loggers obtained before the call keep their old writer.
func CaptureLogs(t *testing.T) *LogCapture {
	t.Helper()
	c := &LogCapture{}
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&c.buf)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	return c
}

// Lines returns the raw log lines.
func (c *LogCapture) Lines() []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(c.buf.Bytes()))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

// Entries decodes every line whose message is msg. Keys that occur twice in
// one line fail the test, since decoding would silently keep the last.
func (c *LogCapture) Entries(t *testing.T, msg string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range c.Lines() {
		requireUniqueKeys(t, line)
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry[zerolog.MessageFieldName] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func requireUniqueKeys(t *testing.T, line string) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	_, err := dec.Token() // {
	require.NoError(t, err, line)
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err, line)
		key := tok.(string)
		require.False(t, seen[key], "duplicate key %q in %s", key, line)
		seen[key] = true
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip), line)
	}
}
