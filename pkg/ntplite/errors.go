package ntplite

import (
	"errors"

	"github.com/ntplite/ntplite/internal/wire"
)

var (
	ErrNotInitialized      = errors.New("client not initialized")
	ErrCapacityExceeded    = errors.New("server list full")
	ErrSendFailed          = errors.New("request send failed")
	ErrResponseTimeout     = errors.New("no response before timeout")
	ErrNoReachableServer   = errors.New("no reachable server")
	ErrAllServersExhausted = errors.New("all servers exhausted")
	ErrSyncInProgress      = errors.New("sync already in progress")
)

// Decode failures surface from the wire layer; re-exported so callers can
// match them with errors.Is without importing the codec.
var (
	ErrSizeMismatch         = wire.ErrSizeMismatch
	ErrImplausibleTimestamp = wire.ErrImplausibleTimestamp
	ErrTimestampOutOfRange  = wire.ErrTimestampOutOfRange
)
