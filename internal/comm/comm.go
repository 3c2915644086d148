package comm

import (
	"encoding/json"
	"time"
)

const (
	EventGameAdded       = "game.added"
	EventSessionRecorded = "session.recorded"
	EventSessionClosed   = "session.closed"
)

// Event is the envelope published on the events subject
type Event struct {
	Type       string          `json:"type"` // e.g. "session.recorded"
	Data       json.RawMessage `json:"data"`
	InstanceId string          `json:"instanceid"` // publishing service instance
	Timestamp  time.Time       `json:"timestamp"`
}

type GameAdded struct {
	GameId string `json:"game_id"`
	Name   string `json:"name"`
}

type SessionRecorded struct {
	SessionId string   `json:"session_id"`
	GameName  string   `json:"game_name"`
	Players   []string `json:"players"`
	Winner    string   `json:"winner"`
}

type SessionClosed struct {
	SessionId string `json:"session_id"`
	GameName  string `json:"game_name"`
}

// WSMessage is exchanged with feed websocket clients
type WSMessage struct {
	Type     string          `json:"type"` // "follow", "unfollow", "event", "error"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// Follow narrows a feed client to the events of one game
type Follow struct {
	Game string `json:"game"`
}
