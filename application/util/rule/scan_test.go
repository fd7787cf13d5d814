package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindCRLF(t *testing.T) {
	testcases := []struct {
		desc        string
		input       string
		from        int
		allowSoleLF bool
		idx, width  int
	}{
		{
			desc:  "crlf",
			input: "abc\r\ndef",
			idx:   3, width: 2,
		},
		{
			desc:  "crlf after offset",
			input: "a\r\nb\r\n",
			from:  3,
			idx:   4, width: 2,
		},
		{
			desc:  "sole lf rejected",
			input: "abc\ndef",
			idx:   -1, width: 0,
		},
		{
			desc:        "sole lf allowed",
			input:       "abc\ndef",
			allowSoleLF: true,
			idx:         3, width: 1,
		},
		{
			desc:        "crlf with sole lf allowed",
			input:       "abc\r\ndef",
			allowSoleLF: true,
			idx:         3, width: 2,
		},
		{
			desc:  "offset past end",
			input: "abc",
			from:  10,
			idx:   -1, width: 0,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			idx, width := FindCRLF([]byte(tc.input), tc.from, tc.allowSoleLF)
			assert.Equal(t, tc.idx, idx)
			assert.Equal(t, tc.width, width)
		})
	}
}

func TestIsFoldedContinuation(t *testing.T) {
	b := []byte("X-Foo: bar\r\n baz\r\n\tqux\r\nNext: 1\r\n")
	assert.True(t, IsFoldedContinuation(b, 12))
	assert.True(t, IsFoldedContinuation(b, 18))
	assert.False(t, IsFoldedContinuation(b, 24))
	assert.False(t, IsFoldedContinuation(b, len(b)))
}
