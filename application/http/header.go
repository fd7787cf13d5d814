package http

import (
	"bytes"
	"strconv"
	"strings"

	"httpwire/application/util/rule"

	"github.com/indigo-web/utils/strcomp"
	"github.com/pkg/errors"
)

var (
	ErrMissingHeaderTerminator = errors.New("header block is not terminated by an empty line")
	ErrMalformedFieldLine      = errors.New("field line is malformed")
)

// EncodeHeaders renders h in insertion order as "Name: Value" lines followed by
// the empty line that ends the header block. The empty line is written even
// when h has no fields.
func EncodeHeaders(h Headers) string {
	return string(AppendHeaders(nil, h))
}

func AppendHeaders(dst []byte, h Headers) []byte {
	return appendHeaders(dst, h, rule.CRLF)
}

func appendHeaders(dst []byte, h Headers, term []byte) []byte {
	for _, f := range h.fields {
		dst = append(dst, f.Name...)
		dst = append(dst, rule.FieldSeparator...)
		dst = append(dst, f.Value.Text()...)
		dst = append(dst, term...)
	}
	return append(dst, term...)
}

// ParseHeaders decodes the header block in buf[start:end] with
// [DefaultDecodeOptions]. See [ParseHeadersWithOptions].
func ParseHeaders(buf []byte, start, end int) (Headers, int, error) {
	return ParseHeadersWithOptions(buf, start, end, DefaultDecodeOptions)
}

// ParseHeadersWithOptions decodes the header block that starts at buf[start]
// and must end, with an empty line, before buf[end]. It returns the headers
// and the offset just past the empty line.
//
// Lines that begin with SP or HTAB continue the previous field value (obsolete
// line folding). A line without a colon ends the fields early unless
// StrictFieldLines is set. Content-Length is stored as an unsigned integer
// when it is one.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
func ParseHeadersWithOptions(buf []byte, start, end int, opts DecodeOptions) (Headers, int, error) {
	if start < 0 || end > len(buf) || start > end {
		return Headers{}, 0, errors.Errorf("invalid header block bounds [%d:%d] for %d bytes", start, end, len(buf))
	}
	buf = buf[:end]

	fieldsEnd, next := findHeaderEnd(buf, start, opts.AllowSoleLF)
	if fieldsEnd < 0 {
		return Headers{}, 0, ErrMissingHeaderTerminator
	}

	h := Headers{}
	for pos := start; pos < fieldsEnd; {
		lineEnd, width := rule.FindCRLF(buf, pos, opts.AllowSoleLF)
		line := buf[pos:lineEnd]

		name, value, ok := bytes.Cut(line, []byte{':'})
		if !ok || !rule.IsValidToken(string(name)) {
			if opts.StrictFieldLines {
				return Headers{}, 0, errors.Wrapf(ErrMalformedFieldLine, "%q", line)
			}
			// Nothing after a line that is not a field is read.
			break
		}

		b := new(strings.Builder)
		b.WriteString(rule.TrimOWS(string(value)))

		pos = lineEnd + width
		for pos < fieldsEnd && rule.IsFoldedContinuation(buf, pos) {
			contEnd, contWidth := rule.FindCRLF(buf, pos, opts.AllowSoleLF)
			opts.Folding.fold(b, rule.TrimOWS(string(buf[pos:contEnd])))
			pos = contEnd + contWidth
		}

		h.add(string(name), b.String(), opts.CombineFieldValues)
	}

	return h, next, nil
}

// findHeaderEnd returns the offset of the empty line that ends the block and
// the offset just past it, or -1 if there is none.
func findHeaderEnd(buf []byte, from int, allowSoleLF bool) (fieldsEnd, next int) {
	for pos := from; ; {
		idx, width := rule.FindCRLF(buf, pos, allowSoleLF)
		if idx < 0 {
			return -1, -1
		}
		if idx == pos {
			return pos, pos + width
		}
		pos = idx + width
	}
}

func (h *Headers) add(name, raw string, combine bool) {
	if combine {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3-1
		if prev, ok := h.Get(name); ok {
			h.Set(name, StringValue(prev.Text()+", "+raw))
			return
		}
	}

	value := StringValue(raw)
	if strcomp.EqualFold(name, "Content-Length") {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			value = UintValue(n)
		}
	}
	h.Set(name, value)
}

// FoldPolicy selects how a folded continuation line joins the value before it.
type FoldPolicy uint8

const (
	// FoldConcat appends the continuation directly: "bar" and " baz" give
	// "barbaz". It is the default until the intended behaviour is confirmed.
	FoldConcat FoldPolicy = iota
	// FoldSpace joins with a single SP as RFC 9112 section 5.2 suggests.
	FoldSpace
)

func (p FoldPolicy) fold(b *strings.Builder, cont string) {
	if p == FoldSpace && b.Len() > 0 && cont != "" {
		b.WriteByte(rule.SP)
	}
	b.WriteString(cont)
}

func (p FoldPolicy) String() string {
	if p == FoldSpace {
		return "space"
	}
	return "concat"
}

func (p *FoldPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "concat":
		*p = FoldConcat
	case "space":
		*p = FoldSpace
	default:
		return errors.Errorf("unknown fold policy %q", text)
	}
	return nil
}

func (p FoldPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
