package ntplite

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

const (
	// DefaultServerPort is the well-known NTP port.
	DefaultServerPort uint16 = 123

	// DefaultLocalPort is bound when the config leaves the port zero.
	DefaultLocalPort uint16 = 2390
)

// Transport moves raw datagrams between the client and its time servers.
// Implementations need not be safe for concurrent use; the client calls
// them from a single goroutine.
type Transport interface {
	Bind(localPort uint16) error
	Send(hostname string, port uint16, payload []byte) error
	// PollReceive waits up to maxWait for a pending datagram and returns
	// nil when none arrived. Callers loop until their own deadline.
	PollReceive(maxWait time.Duration) ([]byte, error)
	Close() error
}

// UDPTransport is the production Transport over a single UDP socket.
type UDPTransport struct {
	conn *net.UDPConn
}

// Bind opens the socket. Port zero lets the system pick an ephemeral port.
func (t *UDPTransport) Bind(localPort uint16) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(localPort)})
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *UDPTransport) Send(hostname string, port uint16, payload []byte) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(hostname, strconv.Itoa(int(port))))
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(payload, addr)
	return err
}

func (t *UDPTransport) PollReceive(maxWait time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(maxWait)); err != nil {
		return nil, err
	}

	// Read past the expected size so oversized replies surface as a size
	// mismatch instead of being silently truncated.
	buffer := make([]byte, 2*wire.PacketSize)
	n, _, err := t.conn.ReadFromUDP(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return buffer[:n], nil
}

func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
