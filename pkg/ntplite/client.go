// Package ntplite synchronizes a host clock against NTP servers with
// failover, quality scoring, and timezone-aware local time.
package ntplite

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

const (
	// DefaultSyncTimeout bounds a single request/response attempt.
	DefaultSyncTimeout = 1500 * time.Millisecond

	// MinAutoSyncInterval is the floor for scheduler-driven resyncs.
	MinAutoSyncInterval = 60 * time.Second

	// receivePollSlice is how long one receive poll may block before the
	// yield hook gets a turn.
	receivePollSlice = 10 * time.Millisecond
)

// DefaultPool lists well-known public servers. It is a plain value: nothing
// is registered until the caller passes it to AddServers.
func DefaultPool() []string {
	return []string{"pool.ntp.org", "time.nist.gov", "time.google.com", "time.cloudflare.com"}
}

// Config wires a Client's collaborators and hooks. Transport and Clock are
// required; everything else may stay zero.
type Config struct {
	Transport Transport
	Clock     Clock
	Logger    *slog.Logger // nil disables logging

	LocalPort uint16        // UDP port to bind, DefaultLocalPort when zero
	Timeout   time.Duration // per-attempt budget, DefaultSyncTimeout when zero
	Zone      TimeZone      // local-time presentation rule, UTC when zero

	// Completion hooks, invoked synchronously after a sync in this order:
	// OnSync (every pass), then OnClockChange and OnRTCSync (success only).
	OnSync        func(SyncResult)
	OnClockChange func(oldTime, newTime time.Time)
	OnRTCSync     func(t time.Time)

	// Yield runs between receive polls so the host loop stays serviced
	// while a sync blocks.
	Yield func()
}

// SyncResult reports one synchronization pass. On failure only Server (when
// one was involved) and Err are meaningful.
type SyncResult struct {
	Success   bool
	Server    string
	Offset    time.Duration
	RoundTrip time.Duration
	Stratum   Stratum
	Time      time.Time
	Err       error
}

// Statistics aggregates sync outcomes across a client's lifetime.
type Statistics struct {
	SyncCount       uint64
	FailureCount    uint64
	TotalSyncTime   time.Duration
	AverageSyncTime time.Duration
	LastOffset      time.Duration
	LastSyncTime    time.Time
}

// syncState is the orchestrator's position in a synchronization pass.
type syncState int

const (
	stateIdle syncState = iota
	stateAttemptingBest
	stateAttemptingFallback
	stateSucceeded
	stateFailed
)

func (s syncState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAttemptingBest:
		return "attempting best"
	case stateAttemptingFallback:
		return "attempting fallback"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Client synchronizes the host clock against registered NTP servers. All
// methods must be called from a single goroutine; nothing here locks.
type Client struct {
	transport Transport
	clock     Clock
	log       *slog.Logger
	zone      TimeZone

	localPort uint16
	timeout   time.Duration

	onSync        func(SyncResult)
	onClockChange func(oldTime, newTime time.Time)
	onRTCSync     func(t time.Time)
	yield         func()

	registry registry
	stats    Statistics
	state    syncState

	bound   bool
	syncing bool

	autoSync         bool
	autoSyncInterval time.Duration
}

func New(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	localPort := config.LocalPort
	if localPort == 0 {
		localPort = DefaultLocalPort
	}
	zone := config.Zone
	if zone.Name == "" {
		zone = ZoneUTC()
	}
	return &Client{
		transport:     config.Transport,
		clock:         config.Clock,
		log:           config.Logger,
		zone:          zone,
		localPort:     localPort,
		timeout:       timeout,
		onSync:        config.OnSync,
		onClockChange: config.OnClockChange,
		onRTCSync:     config.OnRTCSync,
		yield:         config.Yield,
	}
}

// Start binds the transport. Until it succeeds, every sync fails with
// ErrNotInitialized.
func (c *Client) Start() error {
	if err := c.transport.Bind(c.localPort); err != nil {
		return fmt.Errorf("bind local port %d: %w", c.localPort, err)
	}
	c.bound = true
	c.logDebug("transport bound", slog.Int("localPort", int(c.localPort)))
	return nil
}

func (c *Client) Close() error {
	c.bound = false
	return c.transport.Close()
}

// AddServer registers a time server. Port zero means the well-known NTP
// port. Re-adding an existing (hostname, port) pair is a no-op.
func (c *Client) AddServer(hostname string, port uint16) error {
	if port == 0 {
		port = DefaultServerPort
	}
	return c.registry.add(hostname, port)
}

// AddServers registers several hostnames on the default port, stopping at
// the first error.
func (c *Client) AddServers(hostnames ...string) error {
	for _, hostname := range hostnames {
		if err := c.AddServer(hostname, DefaultServerPort); err != nil {
			return err
		}
	}
	return nil
}

// RemoveServer drops every registered entry for hostname.
func (c *Client) RemoveServer(hostname string) {
	c.registry.remove(hostname)
}

func (c *Client) ClearServers() {
	c.registry.clear()
}

// Servers returns a copy of the registry in registration order.
func (c *Client) Servers() []ServerRecord {
	return c.registry.snapshot()
}

// Stats returns a copy of the aggregate counters.
func (c *Client) Stats() Statistics {
	return c.stats
}

// ResetStatistics zeroes the aggregate counters and every server's quality
// history, marking all servers reachable again.
func (c *Client) ResetStatistics() {
	c.stats = Statistics{}
	c.registry.resetStatistics()
}

// Sync runs one synchronization pass: the best-scoring server first, then
// every reachable server in registration order, which retries the best one
// once more. timeout bounds each attempt; non-positive means the configured
// default. Failures are reported in the result, never panicked.
func (c *Client) Sync(timeout time.Duration) SyncResult {
	if !c.bound {
		return SyncResult{Err: ErrNotInitialized}
	}
	if c.syncing {
		return SyncResult{Err: ErrSyncInProgress}
	}
	c.syncing = true
	defer func() { c.syncing = false }()

	if timeout <= 0 {
		timeout = c.timeout
	}
	started := time.Now()

	c.state = stateAttemptingBest
	best := c.registry.selectBest()
	if best != nil {
		result, err := c.exchange(best, timeout)
		if err == nil {
			return c.apply(result, best, started)
		}
		c.attemptFailed(best, err)
	}

	c.state = stateAttemptingFallback
	attempted := best != nil
	for _, server := range c.registry.servers {
		if !server.Reachable {
			continue
		}
		attempted = true
		result, err := c.exchange(server, timeout)
		if err == nil {
			return c.apply(result, server, started)
		}
		// The best candidate already took its failure mark above; its
		// redundant retry must not count twice in one pass.
		if server != best {
			c.attemptFailed(server, err)
		}
	}

	c.state = stateFailed
	c.stats.FailureCount++
	err := ErrAllServersExhausted
	if !attempted {
		err = ErrNoReachableServer
	}
	result := SyncResult{Err: err}
	c.logInfo("sync failed", slog.String("error", err.Error()))
	if c.onSync != nil {
		c.onSync(result)
	}
	return result
}

func (c *Client) attemptFailed(server *ServerRecord, err error) {
	c.logInfo("attempt failed",
		slog.String("server", server.Hostname),
		slog.String("error", err.Error()))
	c.registry.recordFailure(server)
}

// exchange sends one request and polls for its response until timeout,
// ceding to the yield hook between polls.
func (c *Client) exchange(server *ServerRecord, timeout time.Duration) (SyncResult, error) {
	request := wire.EncodeRequest(c.clock.Now())
	sendStart := time.Now()
	if err := c.transport.Send(server.Hostname, server.Port, request); err != nil {
		return SyncResult{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	deadline := sendStart.Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return SyncResult{}, ErrResponseTimeout
		}
		if remaining > receivePollSlice {
			remaining = receivePollSlice
		}
		response, err := c.transport.PollReceive(remaining)
		if err != nil {
			return SyncResult{}, fmt.Errorf("receive: %w", err)
		}
		if response != nil {
			rtt := time.Since(sendStart)
			decoded, err := wire.DecodeResponse(response)
			if err != nil {
				return SyncResult{}, err
			}
			// Half the round trip approximates the return-path delay.
			serverTime := decoded.Time().Add(rtt / 2)
			return SyncResult{
				Success:   true,
				Server:    net.JoinHostPort(server.Hostname, strconv.Itoa(int(server.Port))),
				Offset:    serverTime.Sub(c.clock.Now()),
				RoundTrip: rtt,
				Stratum:   decoded.Stratum,
				Time:      serverTime,
			}, nil
		}
		if c.yield != nil {
			c.yield()
		}
	}
}

// apply commits a successful exchange: clock set, registry and statistics
// updated, callbacks fired.
func (c *Client) apply(result SyncResult, server *ServerRecord, started time.Time) SyncResult {
	oldTime := c.clock.Now()

	offsetMs := float64(result.Offset.Microseconds()) / 1000
	rttMs := float64(result.RoundTrip.Microseconds()) / 1000
	c.registry.recordSuccess(server, result.Time, offsetMs, rttMs, result.Stratum)

	if err := c.clock.Set(result.Time); err != nil {
		c.state = stateFailed
		c.stats.FailureCount++
		failed := SyncResult{Server: result.Server, Err: fmt.Errorf("apply clock: %w", err)}
		if c.onSync != nil {
			c.onSync(failed)
		}
		return failed
	}

	c.state = stateSucceeded
	elapsed := time.Since(started)
	c.stats.SyncCount++
	c.stats.TotalSyncTime += elapsed
	c.stats.AverageSyncTime = c.stats.TotalSyncTime / time.Duration(c.stats.SyncCount)
	c.stats.LastOffset = result.Offset
	c.stats.LastSyncTime = result.Time

	c.logInfo("clock synchronized",
		slog.String("server", result.Server),
		slog.Duration("offset", result.Offset),
		slog.Duration("rtt", result.RoundTrip))

	if c.onSync != nil {
		c.onSync(result)
	}
	if c.onClockChange != nil {
		c.onClockChange(oldTime, result.Time)
	}
	if c.onRTCSync != nil {
		c.onRTCSync(result.Time)
	}
	return result
}

// SetAutoSync arms or disarms scheduler-driven resyncs. Intervals below
// MinAutoSyncInterval are clamped up to it.
func (c *Client) SetAutoSync(enabled bool, interval time.Duration) {
	if interval < MinAutoSyncInterval {
		interval = MinAutoSyncInterval
	}
	c.autoSync = enabled
	c.autoSyncInterval = interval
}

// Process is the host-loop poll: it triggers a sync when automatic
// synchronization is enabled and one is due. A client that has never
// synced is always due.
func (c *Client) Process() {
	if !c.autoSync || !c.bound {
		return
	}
	if c.stats.LastSyncTime.IsZero() || c.clock.Now().Sub(c.stats.LastSyncTime) >= c.autoSyncInterval {
		c.Sync(c.timeout)
	}
}

// NextSyncTime reports when the scheduler will fire next; the zero time
// when disabled or nothing has synced yet.
func (c *Client) NextSyncTime() time.Time {
	if !c.autoSync || c.stats.LastSyncTime.IsZero() {
		return time.Time{}
	}
	return c.stats.LastSyncTime.Add(c.autoSyncInterval)
}

// SetTime writes the clock directly, bypassing synchronization. Statistics
// are untouched; the clock-changed hook still fires.
func (c *Client) SetTime(t time.Time) error {
	oldTime := c.clock.Now()
	if err := c.clock.Set(t); err != nil {
		return err
	}
	if c.onClockChange != nil {
		c.onClockChange(oldTime, t)
	}
	return nil
}

// AdjustTime shifts the clock by a relative amount.
func (c *Client) AdjustTime(delta time.Duration) error {
	return c.SetTime(c.clock.Now().Add(delta))
}

// SetZone swaps the local-time presentation rule.
func (c *Client) SetZone(zone TimeZone) {
	c.zone = zone
}

func (c *Client) Zone() TimeZone {
	return c.zone
}

// LocalTime is the current clock reading shifted into the configured zone.
func (c *Client) LocalTime() time.Time {
	return c.zone.LocalTime(c.clock.Now().UTC())
}

// FormattedTime renders the local time as "2006-01-02 15:04:05". Before
// any sync lands the clock still sits near the epoch and the placeholder
// "Not Synced" is returned instead.
func (c *Client) FormattedTime() string {
	now := c.clock.Now()
	if now.Unix() < 86400 {
		return "Not Synced"
	}
	local := c.zone.LocalTime(now.UTC())
	if year := local.Year(); year < 1970 || year > 2105 {
		return "Invalid Time"
	}
	return FormatEpoch(local)
}

// Diagnostics renders a multi-line status report: orchestrator state,
// aggregate counters, and one line per server.
func (c *Client) Diagnostics() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", c.state)
	fmt.Fprintf(&b, "synced: %d  failed: %d  avg attempt: %s\n",
		c.stats.SyncCount, c.stats.FailureCount, c.stats.AverageSyncTime)
	if !c.stats.LastSyncTime.IsZero() {
		fmt.Fprintf(&b, "last sync: %s  offset: %s\n", FormatEpoch(c.stats.LastSyncTime), c.stats.LastOffset)
	}
	if next := c.NextSyncTime(); !next.IsZero() {
		fmt.Fprintf(&b, "next sync: %s\n", FormatEpoch(next))
	}
	for _, server := range c.registry.servers {
		fmt.Fprintf(&b, "  %s reachable=%t fails=%d stratum=%s offset=%.3fms rtt=%.3fms\n",
			net.JoinHostPort(server.Hostname, strconv.Itoa(int(server.Port))),
			server.Reachable, server.ConsecutiveFailures, server.Stratum,
			server.AverageOffsetMs, server.AverageRTTMs)
	}
	return b.String()
}

func (c *Client) logenabled(level slog.Level) bool {
	return c.log != nil && c.log.Handler().Enabled(context.Background(), level)
}

func (c *Client) logInfo(msg string, attrs ...slog.Attr) {
	if c.logenabled(slog.LevelInfo) {
		c.log.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
	}
}

func (c *Client) logDebug(msg string, attrs ...slog.Attr) {
	if c.logenabled(slog.LevelDebug) {
		c.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}
