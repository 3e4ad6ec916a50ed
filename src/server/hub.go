package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"stock-insight/src/models"
	"stock-insight/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *InsightServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))
			s.offer(client, s.initialEvents(nil))

		case client := <-s.replay:
			// the client may have left between subscribing and now
			if _, ok := s.clients[client]; ok {
				s.offer(client, s.initialEvents(client.subscribed()))
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.setConnections(len(s.clients))
			}

		case event := <-s.broadcast:
			for client := range s.clients {
				if !client.wants(event.Record.Ticker) {
					continue
				}
				select {
				case client.send <- event:
				default:
					// Client too slow, disconnect to keep the hub moving
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.setConnections(len(s.clients))

		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.setConnections(0)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// offer queues msg without blocking the hub. Only the hub goroutine sends on
// or closes client.send.
func (s *InsightServer) offer(client *Client, msg interface{}) {
	select {
	case client.send <- msg:
	default:
		s.Logger.Debug("Client buffer full, replay dropped")
	}
}

// -----------------------------------------------------------------------------

func (s *InsightServer) setConnections(n int) {
	s.connMu.Lock()
	s.connections = n
	s.connMu.Unlock()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast records the event for replay and queues it for live clients.
// It never blocks the analysis path.
func (s *InsightServer) Broadcast(event models.MAnalysisEvent) {
	s.recent.Append(event)

	select {
	case <-s.quit:
		return
	default:
	}

	select {
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast queue full, dropping event for %s", event.Record.Ticker)
	}
}

// -----------------------------------------------------------------------------

// initialEvents replays the ring buffer, optionally filtered by ticker.
func (s *InsightServer) initialEvents(symbols []string) models.MInitialEvents {
	all := s.recent.GetAll()
	out := models.MInitialEvents{Type: models.EventTypeInitial, Events: make([]models.MAnalysisEvent, 0, len(all))}
	for _, e := range all {
		if len(symbols) == 0 || containsFold(symbols, e.Record.Ticker) {
			out.Events = append(out.Events, e)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *InsightServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan interface{}, utils.ClientSendBuffer),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and replays matching events.
// An empty symbol list subscribes to everything.
func (s *InsightServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	symbols := make([]string, 0, len(cmd.Symbols))
	for _, sym := range cmd.Symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	client.setSymbols(symbols)

	select {
	case s.replay <- client:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------

func containsFold(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
