package http

import (
	"bytes"
	"log/slog"
	"testing"

	"httpwire/application/http/status"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ResponseParserTestSuite struct {
	suite.Suite

	logs   *bytes.Buffer
	parser *ResponseParser
}

func TestResponseParserTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseParserTestSuite))
}

func (s *ResponseParserTestSuite) SetupTest() {
	s.logs = bytes.NewBuffer(nil)
	logger := slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.parser = NewResponseParser(DefaultDecodeOptions, logger)
}

func (s *ResponseParserTestSuite) TestParse() {
	raw := "" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Type: application/json; charset=utf-8\r\n" +
		"Content-Length: 13\r\n" +
		"X-Foo: bar\r\n" +
		" baz\r\n" +
		"\r\n" +
		`{"id":[1,2]}` + "\n"

	res, err := s.parser.Parse([]byte(raw))
	s.Require().NoError(err)

	s.Equal(Version11, res.Version())
	s.Equal("HTTP/1.1", res.RawVersion())
	s.Equal(status.OK, res.Status())
	s.True(res.Success())
	s.False(res.Incomplete())

	foo, _ := res.Header("x-foo")
	s.Equal("barbaz", foo.Text())

	s.Equal(BodyJSON, res.BodyKind())
	data, ok := res.JSON()
	s.True(ok)
	s.Equal(map[string]any{"id": []any{float64(1), float64(2)}}, data)
	s.Equal(`{"id":[1,2]}`+"\n", res.Text())

	var decoded struct {
		ID []int `json:"id"`
	}
	s.NoError(res.Decode(&decoded))
	s.Equal([]int{1, 2}, decoded.ID)
}

func (s *ResponseParserTestSuite) TestParseSkipsLeadingNoise() {
	raw := "" +
		"\x00\x01garbage HTTP/ and HTTP/1.1 20 OK\r\n" +
		"HTTP/1.1 404 Not Found\r\n" +
		"\r\n"

	res, err := s.parser.Parse([]byte(raw))
	s.Require().NoError(err)

	s.Equal(uint(404), res.StatusCode())
	s.Equal("Not Found", res.Reason())
	s.False(res.Success())
	s.Equal(BodyNone, res.BodyKind())
	s.Contains(s.logs.String(), "skipped bytes before status line")
}

func (s *ResponseParserTestSuite) TestParseMalformedJSON() {
	raw := "" +
		"HTTP/1.1 500 Internal Server Error\r\n" +
		"Content-Type: application/json\r\n" +
		"\r\n" +
		"{not json"

	res, err := s.parser.Parse([]byte(raw))
	s.Require().NoError(err)

	s.Equal(BodyText, res.BodyKind())
	s.Equal("{not json", res.Text())
	_, ok := res.JSON()
	s.False(ok)
	s.Contains(s.logs.String(), "keeping malformed json body as text")
}

func (s *ResponseParserTestSuite) TestParseErrors() {
	testcases := []struct {
		desc    string
		opts    DecodeOptions
		input   string
		wantErr error
	}{
		{
			desc:    "empty buffer",
			input:   "",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "no status line",
			input:   "<html>hello</html>\r\n\r\n",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "status line without terminator",
			input:   "HTTP/1.1 200 OK",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "two digit status",
			input:   "HTTP/1.1 20 OK\r\n\r\n",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "status line too long",
			opts:    DecodeOptions{MaxStatusLineLength: 10},
			input:   "HTTP/1.1 200 OK\r\n\r\n",
			wantErr: ErrStatusLineTooLong,
		},
		{
			desc:    "header block never ends",
			input:   "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n",
			wantErr: ErrMissingHeaderTerminator,
		},
		{
			desc:    "strict field lines",
			opts:    DecodeOptions{StrictFieldLines: true},
			input:   "HTTP/1.1 200 OK\r\nnot a field\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			res, err := NewResponseParser(tc.opts, nil).Parse([]byte(tc.input))
			s.ErrorIs(err, tc.wantErr)
			s.Nil(res)
		})
	}
}

func (s *ResponseParserTestSuite) TestParseStatusLine() {
	testcases := []struct {
		desc       string
		input      string
		version    Version
		rawVersion string
		status     status.Status
	}{
		{
			desc:       "reason phrase with spaces",
			input:      "HTTP/1.0 503 Service Unavailable\r\n\r\n",
			version:    Version10,
			rawVersion: "HTTP/1.0",
			status:     status.ServiceUnavailable,
		},
		{
			desc:       "no reason phrase",
			input:      "HTTP/1.1 204\r\n\r\n",
			version:    Version11,
			rawVersion: "HTTP/1.1",
			status:     status.Status{Code: 204},
		},
		{
			desc:       "empty reason phrase",
			input:      "HTTP/1.1 204 \r\n\r\n",
			version:    Version11,
			rawVersion: "HTTP/1.1",
			status:     status.Status{Code: 204},
		},
		{
			desc:       "version that is not modelled",
			input:      "HTTP/2 200 OK\r\n\r\n",
			version:    VersionUnknown,
			rawVersion: "HTTP/2",
			status:     status.OK,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			res, err := s.parser.Parse([]byte(tc.input))
			s.Require().NoError(err)

			s.Equal(tc.version, res.Version())
			s.Equal(tc.rawVersion, res.RawVersion())
			s.Equal(tc.status, res.Status())
		})
	}
}

func (s *ResponseParserTestSuite) TestParseBodyFraming() {
	testcases := []struct {
		desc       string
		input      string
		body       string
		incomplete bool
	}{
		{
			desc:  "rest of buffer without Content-Length",
			input: "HTTP/1.1 200 OK\r\n\r\nhello world",
			body:  "hello world",
		},
		{
			desc:  "bounded by Content-Length",
			input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello world",
			body:  "hello",
		},
		{
			desc:       "shorter than Content-Length",
			input:      "HTTP/1.1 200 OK\r\nContent-Length: 20\r\n\r\nhello world",
			body:       "hello world",
			incomplete: true,
		},
		{
			desc:  "unusable Content-Length",
			input: "HTTP/1.1 200 OK\r\nContent-Length: many\r\n\r\nhello",
			body:  "hello",
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			res, err := s.parser.Parse([]byte(tc.input))
			s.Require().NoError(err)

			s.Equal(tc.body, res.Text())
			s.Equal(tc.incomplete, res.Incomplete())
			s.Equal(BodyText, res.BodyKind())
		})
	}
}

func (s *ResponseParserTestSuite) TestParseOwnsBody() {
	buf := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello")

	res, err := s.parser.Parse(buf)
	s.Require().NoError(err)

	copy(buf[len(buf)-5:], "jello")
	s.Equal("hello", res.Text())
	s.Equal(Content{MediaType: "text/plain", Body: []byte("hello")}, res.Content())
}

func TestParseResponseSuccess(t *testing.T) {
	testcases := []struct {
		desc     string
		response func(t *testing.T) *Response
		expected bool
	}{
		{
			desc: "200",
			response: func(t *testing.T) *Response {
				res, err := ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\n"))
				assert.NoError(t, err)
				return res
			},
			expected: true,
		},
		{
			desc: "404",
			response: func(t *testing.T) *Response {
				res, err := ParseResponse([]byte("HTTP/1.1 404 Not Found\r\n\r\n"))
				assert.NoError(t, err)
				return res
			},
			expected: false,
		},
		{
			desc: "transport failure",
			response: func(t *testing.T) *Response {
				return NewTransportFailure(errors.New("connection refused"))
			},
			expected: false,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.response(t).Success())
		})
	}

	failure := NewTransportFailure(errors.New("connection refused"))
	assert.Equal(t, uint(0), failure.StatusCode())
	assert.EqualError(t, failure.Err(), "connection refused")
}

func TestResponseComplete(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected bool
	}{
		{desc: "empty", input: "", expected: false},
		{desc: "partial status line", input: "HTTP/1.1 200", expected: false},
		{desc: "partial headers", input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n", expected: false},
		{desc: "partial body", input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhel", expected: false},
		{desc: "whole body", input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello", expected: true},
		{desc: "zero length", input: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", expected: true},
		{desc: "no content", input: "HTTP/1.1 204 No Content\r\n\r\n", expected: true},
		{desc: "not modified", input: "HTTP/1.1 304 Not Modified\r\nContent-Length: 10\r\n\r\n", expected: true},
		{desc: "read until close", input: "HTTP/1.1 200 OK\r\n\r\nhello", expected: false},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResponseComplete([]byte(tc.input), DefaultDecodeOptions))
		})
	}
}

type RequestDecoderTestSuite struct {
	suite.Suite
}

func TestRequestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(RequestDecoderTestSuite))
}

func (s *RequestDecoderTestSuite) TestParseRequest() {
	body := "field1=value1"

	raw := "" +
		"\r\n" + // leading empty lines.
		"\r\n" +
		"POST /example?a=1 HTTP/1.1\r\n" +
		"Host: example.com:8080\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		body + "trailing"

	req, err := ParseRequest([]byte(raw), DefaultDecodeOptions)
	s.Require().NoError(err)

	s.Equal(MethodPost, req.Method())
	s.Equal(Version11, req.Version())
	s.Equal("/example?a=1", req.URI().RequestTarget())
	s.Equal("example.com", req.URI().Authority().Host)
	s.Equal(uint16(8080), req.URI().Authority().Port)
	s.Equal(Content{MediaType: "application/x-www-form-urlencoded", Body: []byte(body)}, req.Content())
}

func (s *RequestDecoderTestSuite) TestParseRequestTargets() {
	testcases := []struct {
		desc     string
		input    string
		host     string
		port     uint16
		path     []string
		wantErr  error
		anyError bool
	}{
		{
			desc:  "absolute form",
			input: "GET https://example.com/a HTTP/1.1\r\nHost: ignored.example\r\n\r\n",
			host:  "example.com",
			port:  443,
			path:  []string{"a"},
		},
		{
			desc:  "authority form",
			input: "CONNECT example.com:8443 HTTP/1.1\r\n\r\n",
			host:  "example.com",
			port:  8443,
		},
		{
			desc:  "asterisk form",
			input: "OPTIONS * HTTP/1.1\r\nHost: example.com\r\n\r\n",
			host:  "example.com",
			port:  80,
		},
		{
			desc:     "origin form without host",
			input:    "GET / HTTP/1.1\r\n\r\n",
			anyError: true,
		},
		{
			desc:    "unknown method",
			input:   "FETCH / HTTP/1.1\r\nHost: example.com\r\n\r\n",
			wantErr: ErrUnknownToken,
		},
		{
			desc:    "unknown version",
			input:   "GET / HTTP/2\r\nHost: example.com\r\n\r\n",
			wantErr: ErrUnknownToken,
		},
		{
			desc:    "double space",
			input:   "GET  / HTTP/1.1\r\nHost: example.com\r\n\r\n",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "no line at all",
			input:   "GET / HTTP/1.1",
			wantErr: ErrMalformedStartLine,
		},
		{
			desc:    "missing header terminator",
			input:   "GET / HTTP/1.1\r\nHost: example.com\r\n",
			wantErr: ErrMissingHeaderTerminator,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			req, err := ParseRequest([]byte(tc.input), DefaultDecodeOptions)
			switch {
			case tc.wantErr != nil:
				s.ErrorIs(err, tc.wantErr)
				return
			case tc.anyError:
				s.Error(err)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.host, req.URI().Authority().Host)
			s.Equal(tc.port, req.URI().Authority().Port)
			s.Equal(tc.path, req.URI().Path())
		})
	}
}
