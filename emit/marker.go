package emit

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// GeneratedLine is the first line of every generated file. It follows the
// convention tools use to recognise generated code.
const GeneratedLine = "// Code generated by bridgegen. DO NOT EDIT."

const markerPrefix = "// bridgegen:marker "

// markerSearchLines bounds how far into a file the marker is looked for.
const markerSearchLines = 5

// State records who owns a generated file's content.
type State string

const (
	// StateGenerated: the generator owns the file and may overwrite it.
	StateGenerated State = "generated"

	// StateEdited: a developer took ownership; the generator must not write.
	StateEdited State = "edited"
)

// Marker is the machine-readable line identifying generated content:
//
//	// bridgegen:marker version=1.2.0 unit=geom state=generated fingerprint=<hex>
//
// Fingerprint covers the body, everything after the marker line.
type Marker struct {
	Version     string
	Unit        string
	State       State
	Fingerprint string
}

// Render returns the two-line header.
func (m Marker) Render() []byte {
	return []byte(fmt.Sprintf("%s\n%sversion=%s unit=%s state=%s fingerprint=%s\n",
		GeneratedLine, markerPrefix, m.Version, m.Unit, m.State, m.Fingerprint))
}

// ParseMarker finds the marker near the top of content and returns it with
// the body that follows it. ok is false when content carries no complete
// marker.
func ParseMarker(content []byte) (m Marker, body []byte, ok bool) {
	offset := 0
	reader := bufio.NewReader(bytes.NewReader(content))
	for i := 0; i < markerSearchLines; i++ {
		line, err := reader.ReadString('\n')
		if len(line) == 0 && err != nil {
			return Marker{}, nil, false
		}
		offset += len(line)
		text := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(text, markerPrefix) {
			m, ok = parseFields(strings.TrimPrefix(text, markerPrefix))
			if !ok {
				return Marker{}, nil, false
			}
			return m, content[offset:], true
		}
		if err != nil {
			return Marker{}, nil, false
		}
	}
	return Marker{}, nil, false
}

func parseFields(s string) (Marker, bool) {
	var m Marker
	seen := 0
	for _, field := range strings.Fields(s) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		switch key {
		case "version":
			m.Version = value
		case "unit":
			m.Unit = value
		case "state":
			m.State = State(value)
		case "fingerprint":
			m.Fingerprint = value
		default:
			continue
		}
		seen++
	}
	if seen < 4 || m.Unit == "" || m.Fingerprint == "" {
		return Marker{}, false
	}
	if m.State != StateGenerated && m.State != StateEdited {
		return Marker{}, false
	}
	return m, true
}
