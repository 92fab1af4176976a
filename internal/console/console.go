// Package console implements an optional TCP-backed serial console for the
// cmd/rv64sim driver. It is adapted from the teacher's SerialTTY
// (pkg/vm/tty.go): a controlling TCP connection feeds a one-byte input
// register and drains a one-byte output register. The engine has no
// knowledge of this device — the driver polls it between blocks and pokes
// the guest-visible MMIO page directly through PhysMemory.
package console

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

// Status register bit flags, mirroring the teacher's TTYIn/TTYOut.
const (
	In = 1 << iota
	Out
)

// ErrDetach indicates the controlling connection went away.
var ErrDetach = errors.New("console: detach")

// Console is a one-byte-at-a-time serial console reachable over a
// controlling TCP connection.
type Console struct {
	conn   net.Conn
	InReg  uint32
	OutReg uint32
	Status uint32
}

// Accept listens on an ephemeral local TCP port and blocks until a
// controlling connection attaches, exactly like the teacher's
// TTYAcceptConn.
func Accept() (*Console, error) {
	nl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	log.Printf("console: waiting for a console to attach on %s/tcp...", nl.Addr())
	conn, err := nl.Accept()
	if err != nil {
		return nil, err
	}
	return &Console{conn: conn}, nil
}

// Close closes the controlling connection.
func (c *Console) Close() error {
	return c.conn.Close()
}

// Poll drains a pending output byte to the connection and/or reads a
// pending input byte from it, without blocking the hart for more than a
// few milliseconds. It returns ErrDetach if the connection is gone.
func (c *Console) Poll() error {
	c.conn.SetDeadline(time.Now().Add(time.Millisecond))

	if c.Status&Out != 0 {
		var b [1]byte
		b[0] = byte(c.OutReg)
		if _, err := c.conn.Write(b[:]); err != nil {
			if isTimeout(err) {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrDetach, err)
		}
		c.Status &^= Out
	}

	if c.Status&In == 0 {
		var b [1]byte
		if _, err := c.conn.Read(b[:]); err != nil {
			if isTimeout(err) {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrDetach, err)
		}
		c.Status |= In
		c.InReg = uint32(b[0])
	}

	return nil
}

func isTimeout(err error) bool {
	return strings.HasSuffix(err.Error(), "i/o timeout")
}
