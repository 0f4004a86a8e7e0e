package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"strata/internal/shared/util"
)

type SSE struct {
	address string
	server  *http.Server
	handler Handler

	sessions   map[string]*sseSession
	sessionsMu sync.RWMutex

	requestLimiter    *util.LimiterRegistry
	connectionLimiter *util.LimiterRegistry
}

type sseSession struct {
	id        string
	messages  chan any
	createdAt time.Time
}

// NewSSE builds the SSE transport. Request and connection limits are
// tracked per client IP; a non-positive rate disables limiting.
func NewSSE(address string, ratePerSecond float64, burst int) (Adapter, error) {
	s := &SSE{
		address:  address,
		sessions: make(map[string]*sseSession),
	}

	if ratePerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		s.requestLimiter = util.NewLimiterRegistry(ratePerSecond, burst, 10*time.Minute)
		s.connectionLimiter = util.NewLimiterRegistry(ratePerSecond, 5, 10*time.Minute)
	}

	return s, nil
}

func (s *SSE) Start(ctx context.Context, handler Handler) error {
	s.handler = handler

	mux := http.NewServeMux()
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/message", s.handleMessage)

	s.server = &http.Server{
		Addr:    s.address,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("MCP SSE server listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *SSE) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *SSE) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.connectionLimiter != nil {
		ip := util.GetClientIP(r)
		if !s.connectionLimiter.Get(ip).Allow(1) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many connections", http.StatusTooManyRequests)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.New().String()
	session := &sseSession{
		id:        sessionID,
		messages:  make(chan any, 32),
		createdAt: time.Now(),
	}

	s.sessionsMu.Lock()
	s.sessions[sessionID] = session
	s.sessionsMu.Unlock()

	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, sessionID)
		s.sessionsMu.Unlock()
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: /message?session_id=%s\n\n", sessionID)
	flusher.Flush()

	for {
		select {
		case msg := <-session.messages:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", string(data))
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-time.After(30 * time.Second):
			// Keep-alive
			fmt.Fprintf(w, ":\n\n")
			flusher.Flush()
		}
	}
}

func (s *SSE) handleMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	s.sessionsMu.RLock()
	session, ok := s.sessions[sessionID]
	s.sessionsMu.RUnlock()

	if !ok {
		http.Error(w, "Invalid session_id", http.StatusNotFound)
		return
	}

	if s.requestLimiter != nil {
		ip := util.GetClientIP(r)
		if !s.requestLimiter.Get(ip).Allow(1) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Responses flow back through the session's SSE channel.
	go func() {
		resp := s.processRPC(context.Background(), raw)
		if resp != nil {
			session.messages <- resp
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (s *SSE) processRPC(ctx context.Context, raw map[string]any) any {
	method, hasMethod := raw["method"].(string)
	jsonrpc, _ := raw["jsonrpc"].(string)

	if !hasMethod || method == "" || jsonrpc == "" {
		// Legacy or malformed
		req := parseLegacyToolRequest(raw)
		if req.Tool == "" {
			return nil
		}
		result, err := s.handler(ctx, req.Tool, req.Args)
		resp := toolResponse{ID: req.ID}
		if err != nil {
			toolErr := normalizeToolError(err)
			resp.OK = false
			resp.Error = &toolErr
		} else {
			resp.OK = true
			resp.Result = result
		}
		return resp
	}

	req := rpcRequest{
		JSONRPC: jsonrpc,
		Method:  method,
		Params:  map[string]any{},
	}
	if id, ok := raw["id"]; ok {
		req.ID = id
	}
	if params, ok := raw["params"].(map[string]any); ok {
		req.Params = params
	}

	if req.Method == "notifications/initialized" {
		return nil
	}

	return buildRPCResponse(ctx, s.handler, req)
}
