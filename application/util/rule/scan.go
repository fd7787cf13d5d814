package rule

import "bytes"

// FindCRLF returns the index of the first CRLF in b at or after from, or -1.
// With allowSoleLF a bare LF terminates the line as well, and the returned
// width tells how many bytes the terminator occupies.
func FindCRLF(b []byte, from int, allowSoleLF bool) (idx, width int) {
	if from >= len(b) {
		return -1, 0
	}

	if !allowSoleLF {
		i := bytes.Index(b[from:], CRLF)
		if i < 0 {
			return -1, 0
		}
		return from + i, len(CRLF)
	}

	i := bytes.IndexByte(b[from:], LF)
	if i < 0 {
		return -1, 0
	}
	idx = from + i
	if idx > from && b[idx-1] == CR {
		return idx - 1, 2
	}
	return idx, 1
}

// IsFoldedContinuation reports whether the line starting at b[at] continues
// the previous field value (obs-fold).
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
func IsFoldedContinuation(b []byte, at int) bool {
	return at < len(b) && IsOWS(b[at])
}
