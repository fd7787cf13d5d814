// Package client sends requests built with package http through a
// [transport.Transport] and parses what comes back.
package client

import (
	"context"
	"log/slog"
	"strings"

	"httpwire/application/http"
	"httpwire/application/util/uri"
	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	headerConnection = "Connection"
	connectionClose  = "close"
)

var ErrNilRequest = errors.New("request is nil")

type Client struct {
	transport transport.Transport
	parser    *http.ResponseParser

	opts Options

	logger *slog.Logger
	clock  clock.Clock
}

func New(
	t transport.Transport,
	logger *slog.Logger,
	clk clock.Clock,
	opts Options,
) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Client{
		transport: t,
		parser:    http.NewResponseParser(opts.Receive.Decode, logger),
		opts:      opts,
		logger:    logger,
		clock:     clk,
	}
}

// NewWithContext wires a stream transport over TCP and TLS from tc.
func NewWithContext(tc *transport.Context, opts Options) *Client {
	complete := func(buf []byte) bool {
		return http.ResponseComplete(buf, opts.Receive.Decode)
	}
	t := transport.NewStreamTransport(tc, transport.NewNetDialer(tc), complete, opts.Transport)
	return New(t, tc.Logger, tc.Clock, opts)
}

// Do sends request and parses the response.
//
// A failure to move bytes is not returned as an error: the response is
// then built by [http.NewTransportFailure] and reports no success. An error
// is returned only when the request cannot be encoded or the received
// bytes do not form a response.
func (c *Client) Do(ctx context.Context, request *http.Request) (*http.Response, error) {
	if request == nil {
		return nil, ErrNilRequest
	}

	request, err := c.prepare(request)
	if err != nil {
		return nil, errors.Wrap(err, "preparing request")
	}

	dst, err := Destination(request)
	if err != nil {
		return nil, err
	}

	if d := c.opts.Timeout.Request; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = c.clock.WithTimeout(ctx, d)
		defer cancel()
	}

	encoded := request.AppendEncode(nil, c.opts.Send.Encode)

	raw, err := c.transport.RoundTrip(ctx, dst, encoded)
	if err != nil {
		c.logger.Debug("transport failed, substituting response",
			"destination", dst.String(),
			"code", transport.CodeOf(err).String(),
			"error", err,
		)
		return http.NewTransportFailure(err), nil
	}

	res, err := c.parser.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing response")
	}

	return res, nil
}

// Get is a shorthand for a GET request to rawURI.
func (c *Client) Get(ctx context.Context, rawURI string) (*http.Response, error) {
	request, err := c.newRequest(http.MethodGet, rawURI)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, request)
}

// Post sends body with the given media type to rawURI.
func (c *Client) Post(ctx context.Context, rawURI, mediaType string, body []byte) (*http.Response, error) {
	request, err := c.newRequest(http.MethodPost, rawURI)
	if err != nil {
		return nil, err
	}
	if err := request.SetContent(mediaType, body); err != nil {
		return nil, errors.Wrap(err, "setting content")
	}
	return c.Do(ctx, request)
}

func (c *Client) newRequest(method http.Method, rawURI string) (*http.Request, error) {
	u, err := uri.ParseWithOptions(rawURI, c.opts.URI)
	if err != nil {
		return nil, errors.Wrap(err, "parsing uri")
	}
	request, err := http.NewRequestURI(method, u)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	return request, nil
}

func (c *Client) prepare(request *http.Request) (*http.Request, error) {
	if !c.opts.Send.CloseConnection {
		return request, nil
	}
	if _, ok := request.Header(headerConnection); ok {
		return request, nil
	}

	// The caller's request is left untouched.
	request = request.Clone()
	if err := request.SetHeaderString(headerConnection, connectionClose); err != nil {
		return nil, err
	}
	return request, nil
}

// Destination derives where request is delivered from its URI.
func Destination(request *http.Request) (transport.Destination, error) {
	u := request.URI()
	if !u.Scheme().IsHTTP() {
		return transport.Destination{}, http.ErrUnsupportedScheme
	}

	authority := u.Authority()
	port := authority.Port
	if port == 0 {
		port = u.Scheme().DefaultPort()
	}

	return transport.Destination{
		Scheme: u.Scheme().String(),
		Host:   strings.TrimSuffix(strings.TrimPrefix(authority.Host, "["), "]"),
		Port:   port,
	}, nil
}
