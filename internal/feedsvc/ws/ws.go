package ws

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/tabletop-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const defaultWriteWait = 10 * time.Second

// client serializes writes, gorilla connections allow one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(v any, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap   sync.Map // socketId -> *client
	followMap sync.Map // socketId -> followed game name, lower case

	// WriteWait bounds a single write. A client that cannot take a message
	// within it is disconnected.
	WriteWait time.Duration
}

func NewWs() *Ws {
	return &Ws{WriteWait: defaultWriteWait}
}

// SocketMessage handles a message sent by a feed client.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "follow":
		var payload comm.Follow
		if err := json.Unmarshal(message.Data, &payload); err != nil || strings.TrimSpace(payload.Game) == "" {
			s.SendError(socketId, "follow needs a game name")
			return
		}
		s.followMap.Store(socketId, strings.ToLower(strings.TrimSpace(payload.Game)))
		s.reply(socketId, "follow-response", payload)
	case "unfollow":
		s.followMap.Delete(socketId)
		s.reply(socketId, "unfollow-response", nil)
	default:
		log.Warnf("unknown event received: %s", message.Type)
		s.SendError(socketId, "unknown message type "+message.Type)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.followMap.Delete(socketId)
}

func (s *Ws) Following(socketId string) (string, bool) {
	game, ok := s.followMap.Load(socketId)
	if !ok {
		return "", false
	}
	return game.(string), true
}

// Broadcast sends event to every client that follows gameName or follows
// nothing. It returns the number of clients written to.
func (s *Ws) Broadcast(gameName string, event json.RawMessage) int {
	msg := &comm.WSMessage{Type: "event", Data: event}
	gameName = strings.ToLower(gameName)

	sent := 0
	s.connMap.Range(func(key, value any) bool {
		socketId := key.(string)
		if game, ok := s.Following(socketId); ok && game != gameName {
			return true
		}
		if err := value.(*client).write(msg, s.WriteWait); err != nil {
			log.Errorf("Error writing event to socket %s, dropping it: %s", socketId, err)
			s.drop(socketId, value.(*client))
			return true
		}
		sent++
		return true
	})
	return sent
}

func (s *Ws) SendError(socketId, errorMsg string) {
	data, _ := json.Marshal(map[string]string{"error": errorMsg})
	s.send(socketId, &comm.WSMessage{Type: "error", Data: data})
}

func (s *Ws) reply(socketId, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("unable to marshal %s for %s: %s", msgType, socketId, err)
		return
	}
	s.send(socketId, &comm.WSMessage{Type: msgType, Data: data})
}

func (s *Ws) send(socketId string, msg *comm.WSMessage) {
	value, ok := s.connMap.Load(socketId)
	if !ok {
		return
	}
	if err := value.(*client).write(msg, s.WriteWait); err != nil {
		log.Errorf("Error writing to socket %s, dropping it: %s", socketId, err)
		s.drop(socketId, value.(*client))
	}
}

// drop forgets the socket and closes it, which also ends its read loop.
func (s *Ws) drop(socketId string, c *client) {
	s.HandleDisconnect(socketId)
	c.conn.Close()
}
