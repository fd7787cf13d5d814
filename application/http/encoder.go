package http

import (
	"bufio"
	"io"
	"strconv"

	"httpwire/application/http/status"
	"httpwire/application/util/rule"

	"github.com/pkg/errors"
)

// TargetForm selects how the request-target is rendered.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
type TargetForm uint8

const (
	// TargetAuto uses the authority-form for CONNECT, the asterisk-form for
	// OPTIONS on a URI without a path and the origin-form otherwise.
	TargetAuto TargetForm = iota
	TargetOrigin
	TargetAbsolute
	TargetAuthority
	TargetAsterisk
)

var targetFormNames = [...]string{
	TargetAuto:      "auto",
	TargetOrigin:    "origin",
	TargetAbsolute:  "absolute",
	TargetAuthority: "authority",
	TargetAsterisk:  "asterisk",
}

func (f TargetForm) String() string {
	if int(f) >= len(targetFormNames) {
		return ""
	}
	return targetFormNames[f]
}

func (f *TargetForm) UnmarshalText(text []byte) error {
	for form, name := range targetFormNames {
		if name == string(text) {
			*f = TargetForm(form)
			return nil
		}
	}
	return errors.Errorf("unknown target form %q", text)
}

func (f TargetForm) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

type EncodeOptions struct {
	// UseSoleLF specifies wheter a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool `yaml:"use_sole_lf"`

	TargetForm TargetForm `yaml:"target_form"`
}

var DefaultEncodeOptions = EncodeOptions{
	UseSoleLF:  false,
	TargetForm: TargetAuto,
}

func (opts EncodeOptions) lineTerminator() []byte {
	if opts.UseSoleLF {
		return rule.CRLF[1:]
	}
	return rule.CRLF
}

// Encode renders the request with [DefaultEncodeOptions]. It never changes r,
// so encoding an unchanged request twice gives identical bytes.
func (r *Request) Encode() []byte {
	return r.AppendEncode(nil, DefaultEncodeOptions)
}

// AppendEncode appends the request line, the header block and the body to dst.
func (r *Request) AppendEncode(dst []byte, opts EncodeOptions) []byte {
	dst = r.appendHead(dst, opts)
	return append(dst, r.content.Body...)
}

func (r *Request) appendHead(dst []byte, opts EncodeOptions) []byte {
	term := opts.lineTerminator()

	dst = append(dst, r.method.String()...)
	dst = append(dst, rule.SP)
	dst = append(dst, r.target(opts.TargetForm)...)
	dst = append(dst, rule.SP)
	dst = append(dst, r.version.String()...)
	dst = append(dst, term...)

	return appendHeaders(dst, r.headers, term)
}

func (r *Request) target(form TargetForm) string {
	if form == TargetAuto {
		switch {
		case r.method == MethodConnect:
			form = TargetAuthority
		case r.method == MethodOptions && !r.uri.HasPath() && len(r.uri.Query()) == 0:
			form = TargetAsterisk
		default:
			form = TargetOrigin
		}
	}

	switch form {
	case TargetAbsolute:
		return r.uri.AbsoluteTarget()
	case TargetAuthority:
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.3
		a := r.uri.Authority()
		return a.HostPort(0)
	case TargetAsterisk:
		return "*"
	default:
		return r.uri.RequestTarget()
	}
}

// Encode renders the response with [DefaultEncodeOptions]. An empty reason
// phrase is filled in from the status registry.
func (r *Response) Encode() []byte {
	return r.AppendEncode(nil, DefaultEncodeOptions)
}

func (r *Response) AppendEncode(dst []byte, opts EncodeOptions) []byte {
	dst = r.appendHead(dst, opts)
	return append(dst, r.content.Body...)
}

func (r *Response) appendHead(dst []byte, opts EncodeOptions) []byte {
	term := opts.lineTerminator()

	version := r.rawVersion
	if version == "" {
		version = r.version.String()
	}
	reason := r.status.ReasonPhrase
	if reason == "" {
		reason = status.Reason(r.status.Code)
	}

	dst = append(dst, version...)
	dst = append(dst, rule.SP)
	dst = strconv.AppendUint(dst, uint64(r.status.Code), 10)
	dst = append(dst, rule.SP)
	dst = append(dst, reason...)
	dst = append(dst, term...)

	return appendHeaders(dst, r.headers, term)
}

type MessageEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
	buf  []byte
}

func (me *MessageEncoder) encode(head, body []byte) error {
	if _, err := me.bw.Write(head); err != nil {
		return errors.Wrap(err, "writing head")
	}

	// I think it's better to flush it before body.
	if err := me.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing start line & header")
	}

	if _, err := me.bw.Write(body); err != nil {
		return errors.Wrap(err, "writing body")
	}

	if err := me.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing body")
	}

	return nil
}

type RequestEncoder struct{ MessageEncoder }

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: opts,
		},
	}
}

func (re *RequestEncoder) Encode(request *Request) error {
	re.buf = request.appendHead(re.buf[:0], re.opts)
	if err := re.encode(re.buf, request.content.Body); err != nil {
		return errors.Wrap(err, "encoding request")
	}
	return nil
}

type ResponseEncoder struct{ MessageEncoder }

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: opts,
		},
	}
}

func (re *ResponseEncoder) Encode(response *Response) error {
	re.buf = response.appendHead(re.buf[:0], re.opts)
	if err := re.encode(re.buf, response.content.Body); err != nil {
		return errors.Wrap(err, "encoding response")
	}
	return nil
}
