// Package httperr turns control-server and daemon failures into messages a
// CLI user can act on.
package httperr

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"

	"github.com/kamranahmedse/podsup/internal/transport"
)

func NetworkHint(err error) string {
	if err == nil {
		return ""
	}

	var tErr *transport.TransportError
	if errors.As(err, &tErr) && errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("no daemon socket at %s, the daemon is not running yet", tErr.Addr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out, the process may be stuck"
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") {
		return "connection refused, is podsup running? Start it with 'podsup serve'"
	}
	if strings.Contains(msg, "no such file or directory") {
		return "socket not found, is podsup running? Start it with 'podsup serve'"
	}

	return msg
}

func Wrap(context string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	var tErr *transport.TransportError
	if errors.As(err, &netErr) || errors.As(err, &tErr) {
		return fmt.Errorf("%s: %s", context, NetworkHint(err))
	}

	return fmt.Errorf("%s: %w", context, err)
}
