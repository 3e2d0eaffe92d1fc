package ntplite

import (
	"fmt"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

// Stratum aliases the wire-level stratum so callers can inspect and render
// it without importing the codec.
type Stratum = wire.Stratum

const (
	// MaxServers caps the registry size.
	MaxServers = 10

	// maxConsecutiveFailures demotes a server to unreachable.
	maxConsecutiveFailures = 3

	// smoothingAlpha is the EMA weight given to each new quality sample.
	smoothingAlpha = 0.1
)

// ServerRecord is one registered time server plus its running quality
// statistics. Averages are kept in milliseconds for reporting.
type ServerRecord struct {
	Hostname            string
	Port                uint16
	LastSuccess         time.Time
	ConsecutiveFailures int
	AverageOffsetMs     float64
	AverageRTTMs        float64
	Reachable           bool
	Stratum             Stratum
}

// score ranks a server for selection; lower is better. Stratum dominates,
// then failure history, then measured latency.
func (s *ServerRecord) score() float64 {
	return float64(s.Stratum)*1000 + float64(s.ConsecutiveFailures)*100 + s.AverageRTTMs
}

type registry struct {
	servers []*ServerRecord
}

// add registers a server. A duplicate (hostname, port) pair is a benign
// no-op.
func (r *registry) add(hostname string, port uint16) error {
	for _, server := range r.servers {
		if server.Hostname == hostname && server.Port == port {
			return nil
		}
	}
	if len(r.servers) >= MaxServers {
		return fmt.Errorf("%w: limit is %d", ErrCapacityExceeded, MaxServers)
	}
	r.servers = append(r.servers, &ServerRecord{
		Hostname:  hostname,
		Port:      port,
		Reachable: true,
		Stratum:   wire.StratumUnknown,
	})
	return nil
}

// remove drops every entry for hostname, whatever the port.
func (r *registry) remove(hostname string) {
	kept := r.servers[:0]
	for _, server := range r.servers {
		if server.Hostname != hostname {
			kept = append(kept, server)
		}
	}
	r.servers = kept
}

func (r *registry) clear() {
	r.servers = nil
}

// selectBest returns the lowest-scoring reachable server. The scan is
// stable, so ties keep the earliest-registered record.
func (r *registry) selectBest() *ServerRecord {
	var best *ServerRecord
	var bestScore float64
	for _, server := range r.servers {
		if !server.Reachable {
			continue
		}
		if score := server.score(); best == nil || score < bestScore {
			best = server
			bestScore = score
		}
	}
	return best
}

// recordSuccess folds a fresh quality sample into a server's averages. The
// first success ever hard-sets them; later samples move them by
// smoothingAlpha.
func (r *registry) recordSuccess(server *ServerRecord, at time.Time, offsetMs, rttMs float64, stratum Stratum) {
	firstSuccess := server.LastSuccess.IsZero()
	server.ConsecutiveFailures = 0
	server.Reachable = true
	server.Stratum = stratum
	server.LastSuccess = at

	if firstSuccess {
		server.AverageOffsetMs = offsetMs
		server.AverageRTTMs = rttMs
		return
	}
	server.AverageOffsetMs = (1-smoothingAlpha)*server.AverageOffsetMs + smoothingAlpha*offsetMs
	server.AverageRTTMs = (1-smoothingAlpha)*server.AverageRTTMs + smoothingAlpha*rttMs
}

func (r *registry) recordFailure(server *ServerRecord) {
	server.ConsecutiveFailures++
	if server.ConsecutiveFailures >= maxConsecutiveFailures {
		server.Reachable = false
	}
}

// resetStatistics returns every record to its freshly-registered state.
// Clearing LastSuccess matters: it re-arms the hard-set of the averages so
// the next sample is not blended against zeros.
func (r *registry) resetStatistics() {
	for _, server := range r.servers {
		server.LastSuccess = time.Time{}
		server.ConsecutiveFailures = 0
		server.AverageOffsetMs = 0
		server.AverageRTTMs = 0
		server.Reachable = true
		server.Stratum = wire.StratumUnknown
	}
}

// snapshot copies the records in registration order.
func (r *registry) snapshot() []ServerRecord {
	out := make([]ServerRecord, len(r.servers))
	for i, server := range r.servers {
		out[i] = *server
	}
	return out
}
