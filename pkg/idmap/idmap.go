// Package idmap computes group ids as seen on the host for containers
// running under a user-namespace runtime such as Sysbox, where container
// id N maps to host id subgid_start+N.
package idmap

import (
	"bufio"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/logging"
)

// DefaultOffset is the conventional first subordinate id when no range
// is configured for the user.
const DefaultOffset = 165536

// Range is one line of /etc/subgid: name:start:count.
type Range struct {
	Owner string
	Start int
	Count int
}

// Parse reads subgid ranges. Blank lines and # comments are ignored;
// malformed lines are an error.
func Parse(r io.Reader) ([]Range, error) {
	var ranges []Range
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, ":")
		if len(fields) != 3 || fields[0] == "" {
			return nil, errors.Newf(errors.ErrConfigParse, "malformed subgid line %d: %q", line, text)
		}
		start, err := cast.ToIntE(fields[1])
		if err != nil || start < 0 {
			return nil, errors.Newf(errors.ErrConfigParse, "invalid subgid start on line %d: %q", line, fields[1])
		}
		count, err := cast.ToIntE(fields[2])
		if err != nil || count <= 0 {
			return nil, errors.Newf(errors.ErrConfigParse, "invalid subgid count on line %d: %q", line, fields[2])
		}
		ranges = append(ranges, Range{Owner: fields[0], Start: start, Count: count})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read subgid ranges")
	}
	return ranges, nil
}

// ParseFile parses a subgid file. A missing file yields no ranges.
func ParseFile(path string) ([]Range, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot open %s", path)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Mapper resolves shifted GIDs from a set of ranges.
type Mapper struct {
	Ranges []Range
	// Offset is used when no range matches the host user.
	Offset int
	// LookupName maps a uid to a user name. Defaults to os/user.
	LookupName func(uid int) (string, error)
}

// NewMapper loads ranges from subgidFile.
func NewMapper(subgidFile string, offset int) (*Mapper, error) {
	ranges, err := ParseFile(subgidFile)
	if err != nil {
		return nil, err
	}
	return &Mapper{Ranges: ranges, Offset: offset}, nil
}

// RangeFor returns the first range owned by hostUID, matched either by
// user name or by the numeric id.
func (m *Mapper) RangeFor(hostUID int) (Range, bool) {
	uid := strconv.Itoa(hostUID)
	name := ""
	if lookup := m.lookup(); lookup != nil {
		if n, err := lookup(hostUID); err == nil {
			name = n
		}
	}
	for _, r := range m.Ranges {
		if r.Owner == uid || (name != "" && r.Owner == name) {
			return r, true
		}
	}
	return Range{}, false
}

// ShiftedGID returns the host-side id of containerGID for hostUID.
func (m *Mapper) ShiftedGID(hostUID, containerGID int) (int, error) {
	if containerGID < 0 {
		return 0, errors.Newf(errors.ErrInvalidInput, "container gid must not be negative, got %d", containerGID)
	}

	r, ok := m.RangeFor(hostUID)
	if !ok {
		offset := m.Offset
		if offset <= 0 {
			offset = DefaultOffset
		}
		logger := logging.GetLogger("idmap")
		logger.Debug().
			Int("host_uid", hostUID).
			Int("offset", offset).
			Msg("No subgid range for host user, using default offset")
		return offset + containerGID, nil
	}

	if containerGID >= r.Count {
		return 0, errors.Newf(errors.ErrConfigValid,
			"container gid %d is outside the %d ids delegated to %s", containerGID, r.Count, r.Owner).
			WithDetail("start", r.Start).
			WithDetail("count", r.Count)
	}
	return r.Start + containerGID, nil
}

func (m *Mapper) lookup() func(int) (string, error) {
	if m.LookupName != nil {
		return m.LookupName
	}
	return func(uid int) (string, error) {
		u, err := user.LookupId(strconv.Itoa(uid))
		if err != nil {
			return "", err
		}
		return u.Username, nil
	}
}
