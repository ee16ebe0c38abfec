package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stats is a snapshot of one opened file's decode progress, pushed to every
// connected client whenever it changes.
type Stats struct {
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	SampleRate  float64 `json:"sampleRate"`
	NumChannels int     `json:"numChannels"`
	Progress    float64 `json:"progress"` // 0..1 fraction of frames decoded
	PeakDB      float64 `json:"peakDb"`
}

// Message is the envelope every WebSocket frame is wrapped in.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Server serves a WebSocket endpoint that broadcasts Stats snapshots,
// feeding a browser dashboard while cmd/audioscope decodes files.
type Server struct {
	port       int
	hub        *hub
	httpServer *http.Server

	mu       sync.RWMutex
	last     Stats
	haveLast bool
}

// NewServer builds a Server listening on port.
func NewServer(port int) *Server {
	return &Server{port: port, hub: newHub()}
}

// Start runs the HTTP+WebSocket server until the process exits or Shutdown
// is called. It blocks, matching net/http.Server.ListenAndServe.
func (s *Server) Start() error {
	go s.hub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("telemetry server starting", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Push broadcasts a new Stats snapshot to every connected client.
func (s *Server) Push(stats Stats) {
	s.mu.Lock()
	s.last = stats
	s.haveLast = true
	s.mu.Unlock()

	msg := Message{Type: "stats", Payload: stats}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stats", "error", err)
		return
	}

	s.hub.Broadcast(data)
}

const indexPage = `<!DOCTYPE html>
<html><head><title>audiofile telemetry</title></head>
<body>
<pre id="out">waiting for a decode stats...</pre>
<script>
const out = document.getElementById("out");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === "stats") out.textContent = JSON.stringify(msg.payload, null, 2);
};
</script>
</body></html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

//nolint:gochecknoglobals // WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	s.hub.register <- c

	s.mu.RLock()
	if s.haveLast {
		msg := Message{Type: "stats", Payload: s.last}
		if data, err := json.Marshal(msg); err == nil {
			c.send <- data
		}
	}
	s.mu.RUnlock()

	go c.writePump()
	c.readPump()
}
