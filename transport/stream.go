package transport

import (
	"context"
	"io"
	"log/slog"

	iolib "httpwire/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrResponseTooLarge = errors.New("response exceeds size limit")

type StreamOptions struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	MaxResponseSize int `yaml:"max_response_size"` // 0 means unlimited.
}

var DefaultStreamOptions = StreamOptions{
	ReadBufferSize:  4096,
	MaxResponseSize: 16 << 20,
}

// StreamTransport sends a request over a fresh connection per round trip
// and reads until complete reports a whole response, or the peer closes.
type StreamTransport struct {
	dialer   ConnDialer
	complete func([]byte) bool
	opts     StreamOptions

	logger *slog.Logger
	clock  clock.Clock
}

var _ Transport = (*StreamTransport)(nil)

// NewStreamTransport creates a transport dialing through dialer.
// A nil complete reads until the peer closes the connection.
func NewStreamTransport(tc *Context, dialer ConnDialer, complete func([]byte) bool, opts StreamOptions) *StreamTransport {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultStreamOptions.ReadBufferSize
	}
	return &StreamTransport{
		dialer:   dialer,
		complete: complete,
		opts:     opts,
		logger:   tc.logger(),
		clock:    tc.clock(),
	}
}

func (t *StreamTransport) RoundTrip(ctx context.Context, dst Destination, request []byte) ([]byte, error) {
	conn, err := t.dialer.Dial(ctx, dst)
	if err != nil {
		return nil, t.fail(ctx, "dial", ConnectFailure, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadLine(deadline)
		conn.SetWriteDeadLine(deadline)
	}

	// Unblocks pending reads and writes when ctx is done.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	start := t.clock.Now()

	if _, err := iolib.WriteFull(conn, request); err != nil {
		return nil, t.fail(ctx, "write", WriteFailure, err)
	}

	response, err := t.read(ctx, conn)
	if err != nil {
		return nil, t.fail(ctx, "read", ReadFailure, err)
	}

	t.logger.Debug("round trip done",
		"destination", dst.String(),
		"sent", len(request),
		"received", len(response),
		"elapsed", t.clock.Since(start),
	)

	return response, nil
}

func (t *StreamTransport) read(ctx context.Context, conn Conn) ([]byte, error) {
	var (
		buf   []byte
		chunk = make([]byte, t.opts.ReadBufferSize)
	)

	for {
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if t.opts.MaxResponseSize > 0 && len(buf) > t.opts.MaxResponseSize {
			return nil, ErrResponseTooLarge
		}
		if n > 0 && t.complete != nil && t.complete(buf) {
			return buf, nil
		}

		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) || errors.Is(err, ErrConnClosed) {
			if len(buf) == 0 {
				return nil, errors.Wrap(ErrConnClosed, "peer closed before responding")
			}
			return buf, nil
		}
		return nil, err
	}
}

func (t *StreamTransport) fail(ctx context.Context, op string, fallback Code, err error) error {
	// A connection closed by ctx cancellation surfaces as a closed conn.
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Wrap(ctxErr, err.Error())
	}

	err = classify(op, fallback, err)
	t.logger.Debug("round trip failed", "op", op, "code", CodeOf(err).String(), "error", err)
	return err
}
