// Package discovery browses the local network for advertised time servers.
package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// serviceType is the DNS-SD name NTP servers advertise under.
const serviceType = "_ntp._udp"

const defaultPort = 123

// Server is one advertisement found on the local network.
type Server struct {
	Hostname string
	Port     uint16
	Name     string
}

// Browse queries the local domain and collects answers until the window
// closes. Advertisements without a resolvable address are dropped.
func Browse(window time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Server)

	go func() {
		var found []Server
		for entry := range entries {
			var hostname string
			switch {
			case entry.AddrV4 != nil:
				hostname = entry.AddrV4.String()
			case entry.Host != "":
				hostname = strings.TrimSuffix(entry.Host, ".")
			default:
				continue
			}
			port := uint16(defaultPort)
			if entry.Port > 0 && entry.Port <= 65535 {
				port = uint16(entry.Port)
			}
			found = append(found, Server{
				Hostname: hostname,
				Port:     port,
				Name:     strings.TrimSuffix(entry.Name, "."),
			})
		}
		done <- found
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: serviceType,
		Domain:  "local",
		Timeout: window,
		Entries: entries,
	})
	close(entries)
	found := <-done
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}
