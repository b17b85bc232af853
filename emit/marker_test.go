package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	body := []byte("export interface Point {\n  x: number;\n}\n")
	a := Seal("geom", "geom.ts", "1.2.0", body)

	assert.Equal(t, "geom", a.Unit)
	assert.Equal(t, "geom.ts", a.Path)
	assert.True(t, strings.HasPrefix(string(a.Content), GeneratedLine+"\n// bridgegen:marker version=1.2.0 unit=geom state=generated fingerprint="))

	m, got, ok := ParseMarker(a.Content)
	require.True(t, ok)
	assert.Equal(t, body, got)
	assert.Equal(t, Marker{Version: "1.2.0", Unit: "geom", State: StateGenerated, Fingerprint: BodyFingerprint(body)}, m)
	assert.Equal(t, a.Fingerprint, m.Fingerprint)
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		state   State
		body    string
	}{
		{
			name:    "edited",
			content: GeneratedLine + "\n// bridgegen:marker version=1.0.0 unit=geom state=edited fingerprint=abc\nbody\n",
			ok:      true,
			state:   StateEdited,
			body:    "body\n",
		},
		{
			name:    "fields in any order with extras",
			content: "// bridgegen:marker fingerprint=abc extra=1 unit=geom state=generated version=1.0.0\n",
			ok:      true,
			state:   StateGenerated,
			body:    "",
		},
		{
			name:    "crlf line endings",
			content: GeneratedLine + "\r\n// bridgegen:marker version=1.0.0 unit=geom state=generated fingerprint=abc\r\nbody\r\n",
			ok:      true,
			state:   StateGenerated,
			body:    "body\r\n",
		},
		{name: "no marker", content: "export const x = 1;\n"},
		{name: "empty", content: ""},
		{name: "missing fingerprint", content: "// bridgegen:marker version=1.0.0 unit=geom state=generated\n"},
		{name: "unknown state", content: "// bridgegen:marker version=1.0.0 unit=geom state=mine fingerprint=abc\n"},
		{name: "marker too deep", content: "a\nb\nc\nd\ne\n// bridgegen:marker version=1.0.0 unit=geom state=generated fingerprint=abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, body, ok := ParseMarker([]byte(tt.content))
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.state, m.State)
			assert.Equal(t, "geom", m.Unit)
			assert.Equal(t, tt.body, string(body))
		})
	}
}
