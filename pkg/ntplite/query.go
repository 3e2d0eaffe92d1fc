package ntplite

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

// ErrNoResponse reports that a queried server never answered.
var ErrNoResponse = errors.New("server did not respond")

// QueryResult is a read-only measurement against one server. The host
// clock is never touched.
type QueryResult struct {
	Server    string
	Offset    time.Duration
	RoundTrip time.Duration
	Stratum   Stratum
	Time      time.Time
}

// Query measures a server with several independent exchanges and keeps the
// lowest-latency sample. Port zero means the well-known NTP port and
// exchanges below one default to three. progress, when non-nil, receives
// one tick per completed exchange.
func Query(hostname string, port uint16, exchanges int, timeout time.Duration, progress chan<- struct{}) (*QueryResult, error) {
	if port == 0 {
		port = DefaultServerPort
	}
	if exchanges < 1 {
		exchanges = 3
	}
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}

	transport := &UDPTransport{}
	if err := transport.Bind(0); err != nil {
		return nil, fmt.Errorf("bind query socket: %w", err)
	}
	defer transport.Close()

	var best *QueryResult
	for i := 0; i < exchanges; i++ {
		result, err := queryExchange(transport, hostname, port, timeout)
		if err == nil && (best == nil || result.RoundTrip < best.RoundTrip) {
			best = result
		}
		if progress != nil {
			progress <- struct{}{}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, hostname)
	}
	return best, nil
}

func queryExchange(transport Transport, hostname string, port uint16, timeout time.Duration) (*QueryResult, error) {
	sendStart := time.Now()
	if err := transport.Send(hostname, port, wire.EncodeRequest(sendStart)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	deadline := sendStart.Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrResponseTimeout
		}
		response, err := transport.PollReceive(remaining)
		if err != nil {
			return nil, fmt.Errorf("receive: %w", err)
		}
		if response == nil {
			continue
		}
		rtt := time.Since(sendStart)
		decoded, err := wire.DecodeResponse(response)
		if err != nil {
			return nil, err
		}
		serverTime := decoded.Time().Add(rtt / 2)
		return &QueryResult{
			Server:    net.JoinHostPort(hostname, strconv.Itoa(int(port))),
			Offset:    time.Until(serverTime),
			RoundTrip: rtt,
			Stratum:   decoded.Stratum,
			Time:      serverTime,
		}, nil
	}
}
