package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "/etc/ntplite.conf"
const defaultSocketPath = "/tmp/ntplited.sock"

func main() {
	_ = godotenv.Load()

	var configPath string
	var socketPath string
	var query string
	var check bool
	var watch bool
	var discover bool
	var noDaemon bool
	var verbose bool
	pflag.StringVarP(&configPath, "config", "c", envOrDefault("NTPLITE_CONFIG", defaultConfigPath), "Path to the configuration file.")
	pflag.StringVar(&socketPath, "socket", envOrDefault("NTPLITE_SOCKET", defaultSocketPath), "Path to the daemon control socket.")
	pflag.StringVarP(&query, "query", "q", "", "Address to query without touching the clock.")
	pflag.BoolVar(&check, "check", false, "Compare the query result against a reference NTP implementation.")
	pflag.BoolVarP(&watch, "watch", "w", false, "Watch a running daemon.")
	pflag.BoolVar(&discover, "discover", false, "Browse the local network for advertised time servers.")
	pflag.BoolVar(&noDaemon, "no-daemon", false, "Don't run ntplite as a daemon.")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "Log at debug level.")
	pflag.Parse()

	switch {
	case query != "":
		handleQueryCommand(query, check)
	case watch:
		handleWatchCommand(socketPath)
	case discover:
		handleDiscoverCommand()
	default:
		runAgent(configPath, socketPath, noDaemon, verbose)
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
