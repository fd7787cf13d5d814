package http

import (
	"bytes"
	"strings"
	"testing"

	"httpwire/application/http/status"

	"github.com/dchest/uniuri"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func headerSet(h Headers) map[string]string {
	set := make(map[string]string, h.Len())
	for name, value := range h.All() {
		set[strings.ToLower(name)] = value.Text()
	}
	return set
}

func randomRequest(t *testing.T, method Method) *Request {
	t.Helper()

	raw := "http://" + strings.ToLower(uniuri.NewLen(8)) + ".example/" + uniuri.NewLen(6) +
		"?" + uniuri.NewLen(4) + "=" + uniuri.NewLen(4)
	req, err := NewRequest(method, raw)
	require.NoError(t, err)

	for range 8 {
		require.NoError(t, req.SetHeaderString("X-"+uniuri.NewLen(12), uniuri.NewLen(24)))
	}
	require.NoError(t, req.SetHeader("X-Count", UintValue(uint64(len(uniuri.New())))))

	return req
}

func TestRequestRoundTrip(t *testing.T) {
	for _, method := range []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch} {
		t.Run(method.String(), func(t *testing.T) {
			req := randomRequest(t, method)
			if method != MethodGet {
				require.NoError(t, req.SetContent("text/plain", []byte(uniuri.NewLen(64))))
			}

			parsed, err := ParseRequest(req.Encode(), DefaultDecodeOptions)
			require.NoError(t, err)

			if diff := cmp.Diff(req.Method(), parsed.Method()); diff != "" {
				t.Errorf("method mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(req.URI().RequestTarget(), parsed.URI().RequestTarget()); diff != "" {
				t.Errorf("target mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(req.Version(), parsed.Version()); diff != "" {
				t.Errorf("version mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(headerSet(req.Headers()), headerSet(parsed.Headers())); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(req.Content().Body, parsed.Content().Body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	res := NewResponse(status.Created)
	for range 8 {
		require.NoError(t, res.SetHeaderString("X-"+uniuri.NewLen(12), uniuri.NewLen(24)))
	}
	require.NoError(t, res.SetJSON(map[string]any{"id": uniuri.New()}))

	parsed, err := ParseResponse(res.Encode())
	require.NoError(t, err)

	if diff := cmp.Diff(res.Status(), parsed.Status()); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(headerSet(res.Headers()), headerSet(parsed.Headers())); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.Content(), parsed.Content()); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if parsed.BodyKind() != BodyJSON {
		t.Errorf("body kind = %d, want json", parsed.BodyKind())
	}
}

// Encoding and parsing share no state, so the same inputs can be used from
// many goroutines at once.
func TestConcurrentEncodeAndParse(t *testing.T) {
	req := randomRequest(t, MethodPost)
	require.NoError(t, req.SetJSON([]string{uniuri.New(), uniuri.New()}))

	wantRequest := req.Encode()

	res := NewResponse(status.OK)
	require.NoError(t, res.SetContent("text/plain", []byte(uniuri.NewLen(128))))
	rawResponse := res.Encode()

	parser := NewResponseParser(DefaultDecodeOptions, nil)

	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			for range 50 {
				if got := req.Encode(); !bytes.Equal(wantRequest, got) {
					return errMismatch("request encoding")
				}

				parsed, err := parser.Parse(rawResponse)
				if err != nil {
					return err
				}
				if parsed.Text() != res.Text() || !parsed.Success() {
					return errMismatch("parsed response")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

type errMismatch string

func (e errMismatch) Error() string { return string(e) + " differs between goroutines" }
