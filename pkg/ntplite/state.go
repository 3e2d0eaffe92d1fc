package ntplite

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ntplite/ntplite/internal/wire"
)

// SaveState writes per-server quality history to path, one server per
// line: hostname, port, average offset, average round trip, stratum, and
// the Unix time of the last successful exchange.
func (c *Client) SaveState(path string) error {
	var b strings.Builder
	for _, server := range c.registry.servers {
		lastSuccess := int64(0)
		if !server.LastSuccess.IsZero() {
			lastSuccess = server.LastSuccess.Unix()
		}
		fmt.Fprintf(&b, "%s %d %s %s %d %d\n",
			server.Hostname,
			server.Port,
			strconv.FormatFloat(server.AverageOffsetMs, 'E', -1, 64),
			strconv.FormatFloat(server.AverageRTTMs, 'E', -1, 64),
			server.Stratum,
			lastSuccess)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// LoadState restores quality history saved by SaveState onto the servers
// that are currently registered. Lines for unknown servers and lines that
// fail to parse are skipped.
func (c *Client) LoadState(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 6 {
			continue
		}
		port, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			continue
		}
		offsetMs, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		rttMs, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}
		stratum, err := strconv.ParseUint(fields[4], 10, 8)
		if err != nil {
			continue
		}
		lastSuccess, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			continue
		}

		for _, server := range c.registry.servers {
			if server.Hostname != fields[0] || server.Port != uint16(port) {
				continue
			}
			server.AverageOffsetMs = offsetMs
			server.AverageRTTMs = rttMs
			server.Stratum = wire.Stratum(stratum)
			if lastSuccess > 0 {
				server.LastSuccess = time.Unix(lastSuccess, 0)
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	return nil
}
