package ping

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

var (
	ErrBadAddress     = errors.New("bad address")
	ErrResolveFailed  = errors.New("resolve failed")
	ErrConnectFailed  = errors.New("connect failed")
	ErrTimeout        = errors.New("timed out")
	ErrShortRead      = errors.New("short read")
	ErrFrameInvalid   = errors.New("invalid frame")
	ErrVarIntOverflow = errors.New("varint overflow")
	ErrMagicMismatch  = errors.New("magic mismatch")
	ErrJSONParse      = errors.New("json parse error")
	ErrBadDataURL     = errors.New("bad data url")
	ErrTranscode      = errors.New("transcode failed")
)

// ProtocolError reports a malformed or unexpected exchange with the server.
type ProtocolError struct {
	Kind   error
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol error: %v", e.Kind)
	}
	return fmt.Sprintf("protocol error: %v: %s", e.Kind, e.Detail)
}

func (e *ProtocolError) Unwrap() error {
	return e.Kind
}

func protocolError(kind error, format string, args ...any) error {
	return &ProtocolError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ioError classifies a failed read or write on an established socket.
func ioError(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return protocolError(ErrShortRead, "%s: peer closed the connection", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
