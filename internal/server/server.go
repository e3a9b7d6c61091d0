// Package server handles WebSocket connections and print submissions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/adcondev/print-bridge/internal/printer"
	"github.com/adcondev/print-bridge/pkg/printers"
)

// PrinterLister runs printer discovery.
type PrinterLister interface {
	GetPrinters(ctx context.Context) printers.Discovery
	Summarize(d printers.Discovery) printer.Summary
}

// JobDispatcher runs print jobs in the background.
type JobDispatcher interface {
	Dispatch(job *PrintJob) error
	InFlight() int
}

// TokenValidator authorizes print submissions.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(token string) bool
}

// ErrDispatcherStopped is returned by dispatchers that no longer accept jobs.
var ErrDispatcherStopped = errors.New("print worker is not running")

// Config holds server configuration
type Config struct {
	// AllowedOrigins are host or scheme://host patterns. Empty means
	// same-origin only.
	AllowedOrigins  []string
	JobsPerMinute   int
	MaxPayloadBytes int64
}

// PrintJob is a submission accepted from a client
type PrintJob struct {
	ID         string          `json:"id"`
	ClientConn *websocket.Conn `json:"-"`
	Printer    string          `json:"printer"`
	Data       []byte          `json:"-"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Message represents incoming WebSocket message
type Message struct {
	Tipo  string          `json:"tipo"`
	ID    string          `json:"id,omitempty"`
	Token string          `json:"token,omitempty"`
	Datos json.RawMessage `json:"datos,omitempty"`
}

// PrintRequest is the payload of a "print" message. Data travels as base64.
type PrintRequest struct {
	Printer string `json:"printer"`
	Data    []byte `json:"data"`
}

// Response represents outgoing WebSocket message
type Response struct {
	Tipo     string `json:"tipo"`
	ID       string `json:"id,omitempty"`
	Status   string `json:"status,omitempty"`
	Mensaje  string `json:"mensaje,omitempty"`
	InFlight int    `json:"in_flight,omitempty"`
}

// PrintersResponse answers "get_printers".
type PrintersResponse struct {
	Tipo     string              `json:"tipo"`
	Status   string              `json:"status"`
	Printers []printer.DetailDTO `json:"printers"`
	Summary  printer.Summary     `json:"summary"`
}

// Server manages WebSocket connections and hands print jobs to a dispatcher
type Server struct {
	cfg          Config
	clients      *ClientRegistry
	limiter      *JobRateLimiter
	discovery    PrinterLister
	tokens       TokenValidator
	dispatcherMu sync.RWMutex
	dispatcher   JobDispatcher
	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

// NewServer creates a new WebSocket server. tokens may be nil, in which case
// submissions are not authenticated.
func NewServer(cfg Config, discovery PrinterLister, tokens TokenValidator) *Server {
	if cfg.JobsPerMinute <= 0 {
		cfg.JobsPerMinute = 60
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 8 << 20
	}

	return &Server{
		cfg:          cfg,
		clients:      NewClientRegistry(),
		limiter:      NewJobRateLimiter(cfg.JobsPerMinute),
		discovery:    discovery,
		tokens:       tokens,
		shutdownChan: make(chan struct{}),
	}
}

// SetDispatcher attaches the component that executes print jobs.
func (s *Server) SetDispatcher(d JobDispatcher) {
	s.dispatcherMu.Lock()
	s.dispatcher = d
	s.dispatcherMu.Unlock()
}

func (s *Server) getDispatcher() JobDispatcher {
	s.dispatcherMu.RLock()
	defer s.dispatcherMu.RUnlock()
	return s.dispatcher
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	return s.clients.Count()
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		log.Printf("[WS] ❌ Error accepting client: %v", err)
		return
	}
	// base64 inflates payloads by 4/3; leave room for the envelope.
	conn.SetReadLimit(s.cfg.MaxPayloadBytes/3*4 + 64*1024)

	s.clients.Add(conn)
	log.Printf("[WS] ➕ Client connected (total: %d) from %s", s.clients.Count(), r.RemoteAddr)

	ctx := r.Context()
	welcome := Response{
		Tipo:    "info",
		Status:  "connected",
		Mensaje: "Print Bridge ready",
	}
	_ = wsjson.Write(ctx, conn, welcome)

	s.handleMessages(ctx, conn, clientKey(r.RemoteAddr))

	s.clients.Remove(conn)
	s.limiter.Prune()
	if err := conn.Close(websocket.StatusNormalClosure, "disconnected"); err != nil {
		return
	}
	log.Printf("[WS] ➖ Client disconnected (remaining: %d)", s.clients.Count())
}

// handleMessages processes incoming messages from a client
func (s *Server) handleMessages(ctx context.Context, conn *websocket.Conn, client string) {
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		var msg Message
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				ctx.Err() != nil {
				return
			}
			log.Printf("[WS] ⚠️ Error reading message: %v", err)
			return
		}

		s.routeMessage(ctx, conn, client, &msg)
	}
}

// routeMessage routes message to appropriate handler
func (s *Server) routeMessage(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	switch msg.Tipo {
	case "print":
		s.handlePrint(ctx, conn, client, msg)
	case "status":
		s.handleStatus(ctx, conn)
	case "ping":
		s.handlePing(ctx, conn, msg)
	case "get_printers":
		s.handleGetPrinters(ctx, conn)
	default:
		log.Printf("[WS] ⚠️ Unknown message type: %s", msg.Tipo)
		s.sendError(ctx, conn, msg.ID, "Unknown message type: "+msg.Tipo)
	}
}

// handlePrint validates a submission and hands it to the dispatcher
func (s *Server) handlePrint(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	jobID := msg.ID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	if s.tokens != nil && s.tokens.Enabled() && !s.tokens.ValidateToken(msg.Token) {
		log.Printf("[AUDIT] PRINT_REJECTED | client=%s | job=%s | reason=token", client, jobID)
		s.sendError(ctx, conn, jobID, "Invalid or missing token")
		return
	}

	if len(msg.Datos) == 0 {
		s.sendError(ctx, conn, jobID, "Field 'datos' is required for type 'print'")
		return
	}

	var req PrintRequest
	if err := json.Unmarshal(msg.Datos, &req); err != nil {
		s.sendError(ctx, conn, jobID, "Invalid 'datos': "+err.Error())
		return
	}
	if int64(len(req.Data)) > s.cfg.MaxPayloadBytes {
		s.sendError(ctx, conn, jobID, "Payload exceeds "+strconv.FormatInt(s.cfg.MaxPayloadBytes, 10)+" bytes")
		return
	}

	// Only well-formed submissions count against the allowance.
	if !s.limiter.Allow(client) {
		log.Printf("[PRINT] 🚫 Rate limit hit for %s, rejecting job %s", client, jobID)
		s.sendError(ctx, conn, jobID, "Too many print jobs, please retry in a minute")
		return
	}

	dispatcher := s.getDispatcher()
	if dispatcher == nil {
		s.sendError(ctx, conn, jobID, ErrDispatcherStopped.Error())
		return
	}

	job := &PrintJob{
		ID:         jobID,
		ClientConn: conn,
		Printer:    req.Printer,
		Data:       req.Data,
		ReceivedAt: time.Now(),
	}
	if err := dispatcher.Dispatch(job); err != nil {
		s.sendError(ctx, conn, jobID, err.Error())
		return
	}

	log.Printf("[PRINT] 📥 Job accepted: %s (%d bytes -> %q)", jobID, len(req.Data), req.Printer)
	_ = wsjson.Write(ctx, conn, Response{
		Tipo:     "ack",
		ID:       jobID,
		Status:   "accepted",
		InFlight: dispatcher.InFlight(),
		Mensaje:  "Job sent to the spooler",
	})
}

// handleStatus sends worker status
func (s *Server) handleStatus(ctx context.Context, conn *websocket.Conn) {
	inFlight := 0
	if d := s.getDispatcher(); d != nil {
		inFlight = d.InFlight()
	}

	_ = wsjson.Write(ctx, conn, Response{
		Tipo:     "status",
		Status:   "ok",
		InFlight: inFlight,
		Mensaje:  "In flight: " + strconv.Itoa(inFlight),
	})
}

// handlePing responds to ping
func (s *Server) handlePing(ctx context.Context, conn *websocket.Conn, msg *Message) {
	_ = wsjson.Write(ctx, conn, Response{
		Tipo:   "pong",
		ID:     msg.ID,
		Status: "ok",
	})
}

// handleGetPrinters handles printer enumeration requests
func (s *Server) handleGetPrinters(ctx context.Context, conn *websocket.Conn) {
	d := s.discovery.GetPrinters(ctx)

	status := "ok"
	if d.Failed() {
		status = "error"
	}

	_ = wsjson.Write(ctx, conn, PrintersResponse{
		Tipo:     "printers",
		Status:   status,
		Printers: printer.ToDTOs(d.Printers),
		Summary:  s.discovery.Summarize(d),
	})
}

// sendError sends error response to client
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, id, mensaje string) {
	_ = wsjson.Write(ctx, conn, Response{
		Tipo:    "error",
		ID:      id,
		Status:  "error",
		Mensaje: mensaje,
	})
}

// NotifyClient sends a result back to a specific client
func (s *Server) NotifyClient(conn *websocket.Conn, response Response) error {
	if conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return wsjson.Write(ctx, conn, response)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		log.Printf("[WS] 🛑 Shutting down, disconnecting %d clients", s.clients.Count())

		s.clients.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		})
	})
}

// clientKey strips the ephemeral port so limits apply per host.
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
