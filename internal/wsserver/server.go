// Package wsserver exposes the calculator over WebSocket connections:
// each inbound JSON frame carries an expression, the server
// tokenizes/parses/rewrites/evaluates it against its one shared ruleset,
// and replies with the resulting tree and value (or a tokenize/parse
// error). Requests cannot name a ruleset, and replies carry no rewrite
// trace; an evaluation error leaves the value out of the reply.
//
// Adapted from sentra's internal/network.WebSocketServer: the same
// client-map-plus-mutex connection registry and broadcast pattern, built
// on gorilla/websocket, but serving calculator requests instead of raw
// byte frames.
package wsserver

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"calc/internal/eval"
	"calc/internal/evalctx"
	"calc/internal/lexer"
	"calc/internal/opctx"
	"calc/internal/parser"
	"calc/internal/rewrite"
)

// Request is one inbound evaluation request.
type Request struct {
	Expression string `json:"expression"`
}

// Response is the server's reply to a Request.
type Response struct {
	Tree  string  `json:"tree,omitempty"`
	Value float64 `json:"value,omitempty"`
	Error string  `json:"error,omitempty"`
}

// client wraps one connected websocket with a write mutex, since
// gorilla/websocket connections are not safe for concurrent writers.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server accepts calculator connections and evaluates requests against a
// shared operator table and simplification ruleset.
type Server struct {
	upgrader websocket.Upgrader
	table    *opctx.Table
	ruleset  *rewrite.Ruleset

	mu      sync.RWMutex
	clients map[string]*client
}

// New builds a Server using the default built-in operator table and an
// empty ruleset; callers may load rules into Ruleset() before serving.
func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		table:   evalctx.Default(),
		ruleset: &rewrite.Ruleset{},
		clients: make(map[string]*client),
	}
}

// Table returns the server's operator table, for callers that want to
// register composite functions before serving.
func (s *Server) Table() *opctx.Table { return s.table }

// Ruleset returns the server's simplification ruleset.
func (s *Server) Ruleset() *rewrite.Ruleset { return s.ruleset }

// ServeHTTP upgrades the connection and handles it until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsserver: upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("wsserver: client %s closed unexpectedly: %v", c.id, err)
			}
			return
		}
		resp := s.handle(req)
		if err := c.writeJSON(resp); err != nil {
			log.Printf("wsserver: write to client %s failed: %v", c.id, err)
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	tokens, err := lexer.NewScanner(req.Expression, s.table).ScanTokens()
	if err != nil {
		return Response{Error: err.Error()}
	}
	tree, err := parser.Parse(tokens, s.table)
	if err != nil {
		return Response{Error: err.Error()}
	}

	tree, _ = rewrite.ApplyRuleset(s.ruleset, tree)

	resp := Response{Tree: tree.String()}
	if value, err := eval.Eval(tree); err == nil {
		resp.Value = value
	}
	return resp
}

// Broadcast sends v as JSON to every currently connected client, skipping
// (and logging) any whose write fails rather than aborting the rest.
func (s *Server) Broadcast(v interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, c := range s.clients {
		if err := c.writeJSON(v); err != nil {
			log.Printf("wsserver: broadcast to client %s failed: %v", id, err)
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
