// Package rpc exposes a running daemon's registry and statistics over a
// unix-socket control channel.
package rpc

import (
	"errors"
	"log"
	"net"
	"net/rpc"
	"os"

	"github.com/ntplite/ntplite/pkg/ntplite"
)

// State is the daemon-side view the control channel reads from. The
// implementation is expected to serialize access to the underlying client.
type State interface {
	Servers() []ntplite.ServerRecord
	Stats() ntplite.Statistics
	Diagnostics() string
}

type Server struct {
	Socket string
	State  State
}

// Listen serves the control socket forever. A stale socket file from a
// previous run is removed first.
func (s *Server) Listen() {
	rpc.Register(s)

	err := os.Remove(s.Socket)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal("bind error:", err)
	}

	l, e := net.Listen("unix", s.Socket)
	if e != nil {
		log.Fatal("listen error:", e)
	}

	for {
		rpc.Accept(l)
	}
}

func (s *Server) FetchServers(args int, reply *[]ntplite.ServerRecord) error {
	*reply = s.State.Servers()
	return nil
}

func (s *Server) FetchStats(args int, reply *ntplite.Statistics) error {
	*reply = s.State.Stats()
	return nil
}

func (s *Server) FetchDiagnostics(args int, reply *string) error {
	*reply = s.State.Diagnostics()
	return nil
}
