package main

import (
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/ntplite/ntplite/internal/discovery"
	"github.com/ntplite/ntplite/pkg/ntplite"
)

func handleDiscoverCommand() {
	fmt.Println("Browsing the local network for time servers...")

	servers, err := discovery.Browse(ntplite.DefaultDiscoverWindow)
	if err != nil {
		log.Fatal(err)
	}
	if len(servers) == 0 {
		fmt.Println("No time servers advertised.")
		return
	}
	for _, server := range servers {
		address := net.JoinHostPort(server.Hostname, strconv.Itoa(int(server.Port)))
		if server.Name != "" {
			fmt.Printf("%-28s %s\n", address, server.Name)
		} else {
			fmt.Println(address)
		}
	}
}
