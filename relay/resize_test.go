package relay

import (
	"testing"

	"gotest.tools/assert"
)

func TestFilterResize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		out     string
		resizes []Resize
	}{
		{
			name:    "embedded",
			in:      "hello\x1b[8;40;120tworld",
			out:     "helloworld",
			resizes: []Resize{{Rows: 40, Cols: 120}},
		},
		{
			name: "plain",
			in:   "ls -la\n",
			out:  "ls -la\n",
		},
		{
			name:    "only sequence",
			in:      "\x1b[8;24;80t",
			out:     "",
			resizes: []Resize{{Rows: 24, Cols: 80}},
		},
		{
			name:    "two sequences",
			in:      "a\x1b[8;1;2tb\x1b[8;65535;3tc",
			out:     "abc",
			resizes: []Resize{{Rows: 1, Cols: 2}, {Rows: 65535, Cols: 3}},
		},
		{
			name: "truncated",
			in:   "hello\x1b[8;40;12",
			out:  "hello\x1b[8;40;12",
		},
		{
			name: "truncated after prefix",
			in:   "\x1b[8;",
			out:  "\x1b[8;",
		},
		{
			name: "missing rows",
			in:   "\x1b[8;;120t",
			out:  "\x1b[8;;120t",
		},
		{
			name: "wrong final byte",
			in:   "\x1b[8;40;120m",
			out:  "\x1b[8;40;120m",
		},
		{
			name: "other csi",
			in:   "\x1b[2J\x1b[1;1H",
			out:  "\x1b[2J\x1b[1;1H",
		},
		{
			name: "overflow",
			in:   "\x1b[8;65536;80t",
			out:  "\x1b[8;65536;80t",
		},
		{
			name: "too many digits",
			in:   "\x1b[8;000040;80t",
			out:  "\x1b[8;000040;80t",
		},
		{
			name:    "malformed then valid",
			in:      "\x1b[8;x\x1b[8;50;60t!",
			out:     "\x1b[8;x!",
			resizes: []Resize{{Rows: 50, Cols: 60}},
		},
		{
			name:    "escape before sequence",
			in:      "\x1b\x1b[8;5;6t",
			out:     "\x1b",
			resizes: []Resize{{Rows: 5, Cols: 6}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, resizes := FilterResize([]byte(tc.in))
			assert.Equal(t, string(out), tc.out)
			assert.DeepEqual(t, resizes, tc.resizes)
		})
	}
}

func TestEncodeResize(t *testing.T) {
	b := EncodeResize(40, 120)
	assert.Equal(t, string(b), "\x1b[8;40;120t")
	out, resizes := FilterResize(append(b, 'x'))
	assert.Equal(t, string(out), "x")
	assert.DeepEqual(t, resizes, []Resize{{Rows: 40, Cols: 120}})
}
