// Package main runs a minimal HTTP SSE server that streams hierarchy
// comparison events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/asynkron/hiertext/internal/config"
	"github.com/asynkron/hiertext/internal/logging"
	"github.com/asynkron/hiertext/internal/source"
	"github.com/asynkron/hiertext/pkg/treediff"
)

// sseWrite sends a single SSE event with the given name and data, followed by a flush.
func sseWrite(w http.ResponseWriter, flusher http.Flusher, event string, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	// data lines must not contain raw newlines; split and prefix each line.
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil { // end of event
		return err
	}
	flusher.Flush()
	return nil
}

type server struct {
	// root confines request paths.
	root   string
	cfg    *config.Config
	logger logging.Logger
}

// resolve maps a request path below the server root.
func (s *server) resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("missing path")
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p))), nil
}

// diffHandler serves GET /diff?left=…&right=…[&format=…]. Every event is
// sent as JSON under its type name, followed by an end event.
func (s *server) diffHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	leftPath, err := s.resolve(q.Get("left"))
	if err != nil {
		http.Error(w, "left: "+err.Error(), http.StatusBadRequest)
		return
	}
	rightPath, err := s.resolve(q.Get("right"))
	if err != nil {
		http.Error(w, "right: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := *s.cfg
	if format := q.Get("format"); format != "" {
		cfg.Diff.Format = format
	}
	opts, err := cfg.DiffOptions(s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	left, err := source.Open(leftPath, cfg.SourceOptions())
	if err != nil {
		http.Error(w, "left not found", http.StatusNotFound)
		return
	}
	right, err := source.Open(rightPath, cfg.SourceOptions())
	if err != nil {
		http.Error(w, "right not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// Basic SSE headers and anti-buffering flags
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering (nginx, etc.)
	w.Header().Set("X-Accel-Buffering", "no")

	// Initial comment to open the stream for some clients
	if _, err := fmt.Fprint(w, ": connected\n\n"); err == nil {
		flusher.Flush()
	}

	opts.Reporter = treediff.ReporterFunc(func(ctx context.Context, e treediff.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Error(ctx, "encode event", err, logging.F("path", e.Path))
			return
		}
		_ = sseWrite(w, flusher, string(e.Type), string(data))
	})
	ctx := logging.WithRunID(r.Context(), logging.NewRunID())
	res, err := treediff.Compare(ctx, left, right, opts)
	if err != nil {
		s.logger.Error(ctx, "compare failed", err, logging.F("left", leftPath), logging.F("right", rightPath))
		_ = sseWrite(w, flusher, "error", err.Error())
		return
	}
	summary, _ := json.Marshal(map[string]any{"events": len(res.Events), "differs": res.Differs()})
	_ = sseWrite(w, flusher, "end", string(summary))
}

func main() {
	addr := pflag.String("addr", ":8080", "listen address")
	root := pflag.String("root", ".", "directory request paths are resolved in")
	cfgFile := pflag.String("config", "", "config file (YAML, JSON or TOML)")
	pflag.String("log-level", "warn", "diagnostic log level (verbose, info, warn, error)")
	pflag.String("log-format", "console", "diagnostic log format (console, json, plain)")
	pflag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(*cfgFile, pflag.CommandLine)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	s := &server{root: *root, cfg: cfg, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/diff", s.diffHandler)

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	log.Printf("SSE server listening on %s (GET /diff?left=a&right=b)", *addr)
	log.Fatal(srv.ListenAndServe())
}
