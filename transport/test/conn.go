// Package test holds a behavioral suite shared by [transport.Conn]
// implementations.
package test

import (
	"bytes"
	"sync"
	"time"

	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// ConnTestSuite checks a connected pair. Embedders set C1 and C2 in their
// SetupTest after calling this one.
type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  clock.Clock

	watchdog *time.Timer
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.New()

	t := s.T()
	s.watchdog = time.AfterFunc(time.Second, func() {
		t.Error("test did not finish in time")
		s.C1.Close()
		s.C2.Close()
	})
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.watchdog.Stop()
	s.NoError(s.C1.Close())
	s.NoError(s.C2.Close())
}

// parallel runs fns concurrently and waits for all of them.
func (s *ConnTestSuite) parallel(fns ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for _, fn := range fns {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

func (s *ConnTestSuite) TestReadWrite() {
	data := []byte("Hello, World!")

	s.parallel(
		func() {
			n, err := s.C1.Write(data)
			s.NoError(err)
			s.Equal(len(data), n)
		},
		func() {
			// A short buffer takes the write in two reads.
			buf := make([]byte, 10)

			n, err := s.C2.Read(buf)
			s.NoError(err)
			s.Equal(data[:n], buf[:n])

			rest := make([]byte, len(data))
			m, err := s.C2.Read(rest)
			s.NoError(err)
			s.Equal(data, append(buf[:n], rest[:m]...))
		},
	)
}

func (s *ConnTestSuite) TestBothDirections() {
	ping, pong := []byte("ping"), []byte("pong")

	exchange := func(conn transport.Conn, send, expect []byte) func() {
		return func() {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := conn.Write(send)
				s.NoError(err)
			}()

			buf := make([]byte, len(expect))
			n, err := conn.Read(buf)
			s.NoError(err)
			s.Equal(expect, buf[:n])
			wg.Wait()
		}
	}

	s.parallel(exchange(s.C1, ping, pong), exchange(s.C2, pong, ping))
}

func (s *ConnTestSuite) TestConcurrentWritesDoNotInterleave() {
	data := []byte("ABCD")
	const writers = 10

	var received []byte
	s.parallel(
		func() {
			b := make([]byte, 3)
			for {
				n, err := s.C2.Read(b)
				if err != nil {
					s.ErrorIs(err, transport.ErrConnClosed)
					return
				}
				received = append(received, b[:n]...)
			}
		},
		func() {
			fns := make([]func(), writers)
			for i := range fns {
				fns[i] = func() {
					n, err := s.C1.Write(data)
					s.NoError(err)
					s.Equal(len(data), n)
				}
			}
			s.parallel(fns...)
			s.NoError(s.C1.Close())
		},
	)

	s.Equal(bytes.Repeat(data, writers), received)
}

func (s *ConnTestSuite) TestEmptyWrite() {
	n, err := s.C1.Write(nil)
	s.NoError(err)
	s.Zero(n)
}

func (s *ConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())
	// Closing twice is harmless.
	s.Require().NoError(s.C1.Close())

	buf := make([]byte, 10)
	for _, conn := range []transport.Conn{s.C1, s.C2} {
		n, err := conn.Read(buf)
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)

		n, err = conn.Write(buf)
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)
	}
}

func (s *ConnTestSuite) TestCloseUnblocks() {
	s.parallel(
		func() {
			_, err := s.C1.Read(make([]byte, 1))
			s.ErrorIs(err, transport.ErrConnClosed)
		},
		func() {
			// Nobody reads C2, so this blocks until the close.
			_, err := s.C1.Write([]byte("never read"))
			s.ErrorIs(err, transport.ErrConnClosed)
		},
		func() {
			time.Sleep(50 * time.Millisecond)
			s.NoError(s.C1.Close())
		},
	)
}

func (s *ConnTestSuite) TestDeadLines() {
	past := s.Clock.Now().Add(-time.Second)
	b := make([]byte, 1)

	s.C1.SetReadDeadLine(past)
	n, err := s.C1.Read(b)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)

	s.C1.SetWriteDeadLine(past)
	n, err = s.C1.Write(b)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestDeadLineFires() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(20 * time.Millisecond))

	_, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
}

func (s *ConnTestSuite) TestDeadLineReset() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))
	s.C1.SetReadDeadLine(time.Time{})

	data := []byte("after reset")
	s.parallel(
		func() {
			_, err := s.C2.Write(data)
			s.NoError(err)
		},
		func() {
			buf := make([]byte, len(data))
			n, err := s.C1.Read(buf)
			s.NoError(err)
			s.Equal(data, buf[:n])
		},
	)
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}
