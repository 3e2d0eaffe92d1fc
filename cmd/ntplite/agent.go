package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ntplite/ntplite/internal/discovery"
	"github.com/ntplite/ntplite/internal/rpc"
	"github.com/ntplite/ntplite/pkg/ntplite"
	"github.com/sevlyar/go-daemon"
)

const processPeriod = time.Second

// agent serializes access to the client: the control socket is served from
// other goroutines while the sync loop runs, and the client itself does not
// lock.
type agent struct {
	mu     sync.Mutex
	client *ntplite.Client
}

func (a *agent) process() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client.Process()
}

func (a *agent) Servers() []ntplite.ServerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client.Servers()
}

func (a *agent) Stats() ntplite.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client.Stats()
}

func (a *agent) Diagnostics() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client.Diagnostics()
}

func (a *agent) saveState(path string, logger *slog.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.client.SaveState(path); err != nil {
		logger.Warn("state not saved", slog.String("error", err.Error()))
	}
}

func runAgent(configPath, socketPath string, noDaemon, verbose bool) {
	if !noDaemon {
		d, err := daemonCtx.Reborn()
		if err != nil {
			if errors.Is(err, daemon.ErrWouldBlock) {
				killDaemon()
				fmt.Println("Successfully stopped ntplite daemon.")
				return
			}
			log.Fatal("Unable to run: ", err)
		}
		if d != nil {
			fmt.Printf("Daemon process (%s, %d) started successfully.\n", daemonName, d.Pid)
			return
		}
		defer daemonCtx.Release()

		log.Print("- - - - - - - - - - - - - - -")
		log.Print("daemon started ", os.Args)
	}

	fileConfig, err := ntplite.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal(err)
		}
		fileConfig = &ntplite.FileConfig{
			Timeout:   ntplite.DefaultSyncTimeout,
			LocalPort: ntplite.DefaultLocalPort,
			Zone:      ntplite.ZoneUTC(),
		}
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := ntplite.New(ntplite.Config{
		Transport: &ntplite.UDPTransport{},
		Clock:     ntplite.SystemClock{},
		Logger:    logger,
		LocalPort: fileConfig.LocalPort,
		Timeout:   fileConfig.Timeout,
		Zone:      fileConfig.Zone,
		OnClockChange: func(oldTime, newTime time.Time) {
			logger.Info("clock adjusted",
				slog.Duration("by", newTime.Sub(oldTime)),
				slog.String("now", ntplite.FormatEpoch(newTime.UTC())))
		},
		OnRTCSync: func(t time.Time) {
			logger.Debug("hardware clock follows system clock on this platform")
		},
	})

	if err := fileConfig.Apply(client); err != nil {
		log.Fatal(err)
	}
	if len(fileConfig.Servers) == 0 {
		if err := client.AddServers(ntplite.DefaultPool()...); err != nil {
			log.Fatal(err)
		}
		logger.Info("no servers configured, using the public pool")
	}
	if fileConfig.Discover > 0 {
		found, err := discovery.Browse(fileConfig.Discover)
		if err != nil {
			logger.Warn("discovery failed", slog.String("error", err.Error()))
		}
		for _, server := range found {
			if err := client.AddServer(server.Hostname, server.Port); err != nil {
				logger.Warn("discovered server not added",
					slog.String("server", server.Hostname),
					slog.String("error", err.Error()))
				break
			}
			logger.Info("discovered server added",
				slog.String("server", server.Hostname),
				slog.String("name", server.Name))
		}
	}
	// A daemon that never resyncs is pointless, so an absent autosync
	// directive means the minimum interval rather than off.
	if fileConfig.AutoSyncInterval == 0 {
		client.SetAutoSync(true, ntplite.MinAutoSyncInterval)
	}

	if err := client.Start(); err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if fileConfig.StateFile != "" {
		if err := client.LoadState(fileConfig.StateFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("state not restored", slog.String("error", err.Error()))
		}
	}

	a := &agent{client: client}
	server := &rpc.Server{Socket: socketPath, State: a}
	go server.Listen()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	a.process()

	ticker := time.NewTicker(processPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.process()
		case sig := <-signals:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			if fileConfig.StateFile != "" {
				a.saveState(fileConfig.StateFile, logger)
			}
			return
		}
	}
}
