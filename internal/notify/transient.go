package notify

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrTransient marks a failure worth retrying on another transport.
// Transports may wrap it; IsTransient also recognises raw network errors.
var ErrTransient = errors.New("transient transport failure")

// IsTransient reports whether err is a connect-phase timeout, a failure to
// establish the connection, or a socket failure. Protocol-level rejections
// such as an authentication refusal are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// crypto/tls reports a peer's alert as a "remote error" op; that is a
		// protocol rejection, not a network failure.
		return opErr.Op != "remote error"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}
