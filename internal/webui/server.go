package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vam876/lllmscanner/internal/aggregate"
	"github.com/vam876/lllmscanner/internal/config"
	"github.com/vam876/lllmscanner/internal/engine"
	"github.com/vam876/lllmscanner/internal/feed"
	"github.com/vam876/lllmscanner/internal/history"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
	"github.com/vam876/lllmscanner/internal/scan"
)

type Server struct {
	cfg  *config.Config
	hub  *engine.Hub
	agg  *aggregate.Aggregator
	hist *history.Store
	feed *feed.Feed
	ctrl *scan.Controller
}

type StartScanRequest struct {
	Target     string `json:"target"`
	TargetType string `json:"targetType"`
}

type ToggleRequest struct {
	SessionID string `json:"sessionId"`
}

func NewServer(cfg *config.Config, hub *engine.Hub, agg *aggregate.Aggregator, hist *history.Store, f *feed.Feed, ctrl *scan.Controller) *Server {
	return &Server{cfg: cfg, hub: hub, agg: agg, hist: hist, feed: f, ctrl: ctrl}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// ---------- Health ----------
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"ok": true,
			"ts": time.Now().UTC(),
		})
	})

	// ---------- Live state ----------
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, s.agg.Snapshot())
	})

	// ---------- History ----------
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, s.hist.Sessions())
	})

	mux.HandleFunc("/api/history/toggle", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}
		var req ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		expanded, err := s.hist.ToggleExpanded(req.SessionID)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		writeJSON(w, 200, map[string]any{"sessionId": req.SessionID, "expanded": expanded})
	})

	mux.HandleFunc("/api/history/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}
		if err := s.hist.Clear(); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, map[string]any{"cleared": true})
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, s.hist.Stats())
	})

	// ---------- Log & notifications ----------
	mux.HandleFunc("/api/log", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, s.feed.Entries())
	})

	mux.HandleFunc("/api/log/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}
		s.feed.Clear()
		writeJSON(w, 200, map[string]any{"cleared": true})
	})

	mux.HandleFunc("/api/notification", func(w http.ResponseWriter, r *http.Request) {
		n, ok := s.feed.Current()
		if !ok {
			writeJSON(w, 200, map[string]any{"visible": false})
			return
		}
		writeJSON(w, 200, map[string]any{"visible": true, "notification": n})
	})

	// ---------- Scan control (ASYNC) ----------
	mux.HandleFunc("/api/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}

		var req StartScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		sessionID, err := s.ctrl.StartScan(r.Context(), req.Target, normalizeKind(req.TargetType))
		switch {
		case errors.Is(err, scan.ErrBusy):
			http.Error(w, err.Error(), http.StatusConflict) // 409
			return
		case errors.Is(err, scan.ErrInvalidTarget):
			http.Error(w, err.Error(), 400)
			return
		case err != nil:
			http.Error(w, err.Error(), 502)
			return
		}

		writeJSON(w, 200, map[string]any{"status": "started", "sessionId": sessionID})
	})

	mux.HandleFunc("/api/scan/cancel", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}
		ok := s.ctrl.CancelScan()
		writeJSON(w, 200, map[string]any{"cancelled": ok})
	})

	// ---------- Engine event intake ----------
	// Движок доставляет события сюда; hub раздаёт их ядру и SSE-клиентам.
	mux.HandleFunc("/api/engine/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", 405)
			return
		}
		var env engine.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if env.Type == "" {
			http.Error(w, "missing event type", 400)
			return
		}
		s.hub.Publish(env.Type, env.Payload)
		writeJSON(w, 200, map[string]any{"accepted": true})
	})

	// ---------- Event stream (SSE) ----------
	mux.HandleFunc("/api/events", s.handleEvents)

	return withCORS(withLogging(mux))
}

// handleEvents ретранслирует события движка клиентам UI.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", 500)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// по подписке на каждый вид; всё снимается при уходе клиента
	merged := make(chan engine.Envelope, 64)
	done := make(chan struct{})
	defer close(done)

	for _, kind := range engine.Kinds {
		ch := s.hub.Subscribe(kind)
		defer s.hub.Unsubscribe(kind, ch)

		go func(kind string, ch chan json.RawMessage) {
			for raw := range ch {
				select {
				case merged <- engine.Envelope{Type: kind, Payload: raw}:
				case <-done:
					return
				}
			}
		}(kind, ch)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case env := <-merged:
			b, err := json.Marshal(env)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(b)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

func normalizeKind(s string) model.TargetType {
	switch s {
	case "single", "range", "cidr":
		return model.TargetType(s)
	}
	return "" // контроллер определит сам
}

// ---------- Middleware ----------
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Infof("webui %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
