// Package transport frames a single request/reply exchange with the robot controller.
//
// Every exchange opens its own TCP connection, writes the request, half-closes the write
// side and reads until the reply delimiter has been seen. Connections are never pooled or
// reused: the controller treats each connection as one command session.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emacontrol/go-ema/logger"
)

// Delimiter terminates every message on the wire.
const Delimiter = ';'

// DefaultTimeout bounds a whole exchange when the caller passes a non-positive timeout.
const DefaultTimeout = 10 * time.Second

const readChunkSize = 256

var (
	// ErrFraming indicates that no delimiter was observed before the peer closed the
	// connection, the timeout elapsed or the context was cancelled.
	ErrFraming = errors.New("transport: no reply delimiter received")

	// ErrEmbeddedDelimiter indicates a payload carrying a delimiter before its end.
	ErrEmbeddedDelimiter = errors.New("transport: payload contains a delimiter before its end")
)

// Exchanger performs one framed request/reply exchange.
type Exchanger interface {
	Exchange(ctx context.Context, host string, port int, payload []byte, timeout time.Duration) ([]byte, error)
}

// Dialer is the TCP implementation of Exchanger.
//
// The zero value is ready to use and logs through the package default logger.
type Dialer struct {
	// Logger receives debug records for every exchange.
	Logger logger.Logger
}

var _ Exchanger = (*Dialer)(nil)

// Exchange is a shorthand for (&Dialer{}).Exchange.
func Exchange(ctx context.Context, host string, port int, payload []byte, timeout time.Duration) ([]byte, error) {
	var d Dialer
	return d.Exchange(ctx, host, port, payload, timeout)
}

// Exchange dials host:port, writes payload fully, half-closes the write side and returns the
// reply bytes up to and including the first delimiter.
//
// The timeout covers the dial and the whole exchange. Cancelling ctx aborts a pending read
// or write with ErrFraming.
func (d *Dialer) Exchange(ctx context.Context, host string, port int, payload []byte, timeout time.Duration) ([]byte, error) {
	if i := bytes.IndexByte(payload, Delimiter); i >= 0 && i != len(payload)-1 {
		return nil, fmt.Errorf("%w: %q", ErrEmbeddedDelimiter, payload)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := d.logger()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("transport: set deadline: %w", err)
	}

	// Unblock pending I/O once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	log.Debug("send request", "addr", addr, "payload", string(payload))

	if err := writeAll(conn, payload); err != nil {
		return nil, fmt.Errorf("%w: write to %s: %w", ErrFraming, addr, ctxErr(ctx, err))
	}

	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, fmt.Errorf("transport: half-close %s: %w", addr, err)
		}
	}

	reply, err := readReply(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: read from %s: %w", ErrFraming, addr, ctxErr(ctx, err))
	}

	log.Debug("receive reply", "addr", addr, "reply", string(reply))

	return reply, nil
}

func (d *Dialer) logger() logger.Logger {
	if d == nil || d.Logger == nil {
		return logger.GetLogger()
	}
	return d.Logger
}

// writeAll writes all bytes in data to w.
func writeAll(w io.Writer, data []byte) error {
	for written := 0; written < len(data); {
		n, err := w.Write(data[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

// readReply reads until the accumulated buffer holds a delimiter.
// A peer closing the stream first yields io.ErrUnexpectedEOF.
func readReply(r io.Reader) ([]byte, error) {
	var acc []byte
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			start := len(acc)
			acc = append(acc, buf[:n]...)
			if i := bytes.IndexByte(acc[start:], Delimiter); i >= 0 {
				return acc[:start+i+1], nil
			}
		}

		if errors.Is(err, io.EOF) {
			if len(acc) == 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("%w after %q", io.ErrUnexpectedEOF, acc)
		}
		if err != nil {
			return nil, err
		}
	}
}

// ctxErr prefers the context's error when a deadline was forced by cancellation.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
