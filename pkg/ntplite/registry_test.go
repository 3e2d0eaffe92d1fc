package ntplite

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

func TestRegistryAddDuplicateIsNoOp(t *testing.T) {
	var r registry
	if err := r.add("a.example.com", 123); err != nil {
		t.Fatal(err)
	}
	if err := r.add("a.example.com", 123); err != nil {
		t.Fatalf("duplicate add returned %v", err)
	}
	if len(r.servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(r.servers))
	}

	// Same host on another port is a distinct server.
	if err := r.add("a.example.com", 1123); err != nil {
		t.Fatal(err)
	}
	if len(r.servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(r.servers))
	}
}

func TestRegistryCapacity(t *testing.T) {
	var r registry
	for i := 0; i < MaxServers; i++ {
		if err := r.add(fmt.Sprintf("server%d.example.com", i), 123); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	err := r.add("overflow.example.com", 123)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("got %v, want ErrCapacityExceeded", err)
	}
	// Re-adding a registered server still succeeds at capacity.
	if err := r.add("server0.example.com", 123); err != nil {
		t.Fatalf("duplicate add at capacity returned %v", err)
	}
}

func TestRegistryRemoveDropsAllPorts(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	r.add("a.example.com", 1123)
	r.add("b.example.com", 123)

	r.remove("a.example.com")

	if len(r.servers) != 1 || r.servers[0].Hostname != "b.example.com" {
		t.Fatalf("got %+v, want only b.example.com", r.servers)
	}
}

func TestSelectBest(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	r.add("b.example.com", 123)
	r.add("c.example.com", 123)

	// Fresh registry: identical scores, earliest registration wins.
	if best := r.selectBest(); best != r.servers[0] {
		t.Fatalf("tie broke to %s, want a.example.com", best.Hostname)
	}

	// Lower stratum dominates RTT.
	r.servers[0].Stratum = 3
	r.servers[0].AverageRTTMs = 1
	r.servers[1].Stratum = 2
	r.servers[1].AverageRTTMs = 900
	r.servers[2].Stratum = 3
	r.servers[2].AverageRTTMs = 2
	if best := r.selectBest(); best != r.servers[1] {
		t.Fatalf("best = %s, want b.example.com", best.Hostname)
	}

	// A failure mark outweighs latency at equal stratum.
	r.servers[1].Reachable = false
	r.servers[0].ConsecutiveFailures = 1
	if best := r.selectBest(); best != r.servers[2] {
		t.Fatalf("best = %s, want c.example.com", best.Hostname)
	}

	r.servers[0].Reachable = false
	r.servers[2].Reachable = false
	if best := r.selectBest(); best != nil {
		t.Fatalf("best = %s, want nil with no reachable server", best.Hostname)
	}
}

func TestRecordSuccessAverages(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	server := r.servers[0]
	at := time.Unix(1_700_000_000, 0)

	// First success hard-sets the averages.
	r.recordSuccess(server, at, 10, 40, 2)
	if server.AverageOffsetMs != 10 || server.AverageRTTMs != 40 {
		t.Fatalf("first sample: offset=%v rtt=%v, want 10/40", server.AverageOffsetMs, server.AverageRTTMs)
	}
	if server.Stratum != 2 || !server.LastSuccess.Equal(at) {
		t.Fatalf("stratum=%v lastSuccess=%v", server.Stratum, server.LastSuccess)
	}

	// Later samples move by the smoothing weight.
	r.recordSuccess(server, at.Add(time.Minute), 20, 60, 2)
	wantOffset := (1-smoothingAlpha)*10 + smoothingAlpha*20
	wantRTT := (1-smoothingAlpha)*40 + smoothingAlpha*60
	if server.AverageOffsetMs != wantOffset {
		t.Errorf("offset = %v, want %v", server.AverageOffsetMs, wantOffset)
	}
	if server.AverageRTTMs != wantRTT {
		t.Errorf("rtt = %v, want %v", server.AverageRTTMs, wantRTT)
	}
}

func TestRecordSuccessClearsFailureStreak(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	server := r.servers[0]

	r.recordFailure(server)
	r.recordFailure(server)
	r.recordFailure(server)
	if server.Reachable {
		t.Fatal("server still reachable after three straight failures")
	}

	r.recordSuccess(server, time.Unix(1_700_000_000, 0), 1, 2, 2)
	if !server.Reachable || server.ConsecutiveFailures != 0 {
		t.Fatalf("after success: reachable=%t fails=%d", server.Reachable, server.ConsecutiveFailures)
	}
}

func TestRecordFailureThreshold(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	server := r.servers[0]

	r.recordFailure(server)
	r.recordFailure(server)
	if !server.Reachable {
		t.Fatal("server unreachable after only two failures")
	}
	r.recordFailure(server)
	if server.Reachable {
		t.Fatal("server reachable after three failures")
	}
}

func TestResetStatistics(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	server := r.servers[0]
	r.recordSuccess(server, time.Unix(1_700_000_000, 0), 10, 40, 2)
	r.recordFailure(server)
	r.recordFailure(server)
	r.recordFailure(server)

	r.resetStatistics()

	if !server.Reachable || server.ConsecutiveFailures != 0 {
		t.Fatalf("reachable=%t fails=%d after reset", server.Reachable, server.ConsecutiveFailures)
	}
	if server.AverageOffsetMs != 0 || server.AverageRTTMs != 0 {
		t.Fatalf("averages %v/%v after reset", server.AverageOffsetMs, server.AverageRTTMs)
	}
	if !server.LastSuccess.IsZero() || server.Stratum != wire.StratumUnknown {
		t.Fatalf("lastSuccess=%v stratum=%v after reset", server.LastSuccess, server.Stratum)
	}

	// The next sample after a reset hard-sets again rather than blending.
	r.recordSuccess(server, time.Unix(1_700_000_100, 0), 30, 70, 1)
	if server.AverageOffsetMs != 30 || server.AverageRTTMs != 70 {
		t.Fatalf("post-reset sample blended: %v/%v", server.AverageOffsetMs, server.AverageRTTMs)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	var r registry
	r.add("a.example.com", 123)
	snap := r.snapshot()
	snap[0].Hostname = "mutated"
	if r.servers[0].Hostname != "a.example.com" {
		t.Fatal("snapshot aliases registry storage")
	}
}
