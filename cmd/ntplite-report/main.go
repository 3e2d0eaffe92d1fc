package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	"github.com/ntplite/ntplite/internal/templates"
	"github.com/ntplite/ntplite/internal/wire"
	"github.com/ntplite/ntplite/pkg/ntplite"
)

const maxConnections = 64

type SyncRequest struct {
	Orig string
}

type SyncResponse struct {
	Orig, Recv, Xmt string
}

type statusPage struct {
	Time    string
	Servers []ntplite.ServerRecord
	Stats   ntplite.Statistics
}

func main() {
	_ = godotenv.Load()

	port := os.Getenv("REPORT_PORT")
	if port == "" {
		port = "8080"
	}
	host := os.Getenv("REPORT_HOST")
	socket := os.Getenv("NTPLITE_SOCKET")
	if socket == "" {
		socket = "/tmp/ntplited.sock"
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.HandleFunc("/", indexHandler(socket)).Methods("GET")
	r.HandleFunc("/api/status", statusHandler(socket)).Methods("GET")
	r.HandleFunc("/api/diagnostics", diagnosticsHandler(socket)).Methods("GET")
	r.HandleFunc("/api/time", timeHandler).Methods("GET")
	r.HandleFunc("/sync", syncHandler).Methods("POST")

	listener, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		log.Fatal(err)
	}
	listener = netutil.LimitListener(listener, maxConnections)

	log.Println("listening on", port)
	log.Fatal(http.Serve(listener, r))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func indexHandler(socket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set these headers to bump performance.now() precision to 5 microseconds
		headerMap := w.Header()
		headerMap.Add("Cross-Origin-Opener-Policy", "same-origin")
		headerMap.Add("Cross-Origin-Embedder-Policy", "require-corp")

		page, err := fetchStatus(socket)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			templates.TemplateExecutor.ExecuteTemplate(w, "error.tmpl.html", map[string]string{
				"Message": "Couldn't reach the ntplite daemon: " + err.Error(),
			})
			return
		}
		templates.TemplateExecutor.ExecuteTemplate(w, "index.tmpl.html", page)
	}
}

func statusHandler(socket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fetchStatus(socket)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func diagnosticsHandler(socket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, err := rpc.Dial("unix", socket)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		defer client.Close()

		var report string
		if err := client.Call("Server.FetchDiagnostics", 0, &report); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(report))
	}
}

func timeHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]string{
		"iso":  now.UTC().Format(time.RFC3339Nano),
		"unix": strconv.FormatInt(now.Unix(), 10),
		"ntp":  strconv.FormatUint(wire.TimestampFromTime(now), 10),
	})
}

func syncHandler(w http.ResponseWriter, r *http.Request) {
	var syncRequest SyncRequest
	err := json.NewDecoder(r.Body).Decode(&syncRequest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recv := strconv.FormatUint(wire.TimestampFromTime(time.Now()), 10)

	syncResponse := SyncResponse{
		Orig: syncRequest.Orig,
		Recv: recv,
		Xmt:  "",
	}

	encoder := json.NewEncoder(w)

	syncResponse.Xmt = strconv.FormatUint(wire.TimestampFromTime(time.Now()), 10)
	encoder.Encode(syncResponse)
}

func fetchStatus(socket string) (*statusPage, error) {
	client, err := rpc.Dial("unix", socket)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var servers []ntplite.ServerRecord
	if err := client.Call("Server.FetchServers", 0, &servers); err != nil {
		return nil, err
	}
	var stats ntplite.Statistics
	if err := client.Call("Server.FetchStats", 0, &stats); err != nil {
		return nil, err
	}

	return &statusPage{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Servers: servers,
		Stats:   stats,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
