package models

import (
	"strings"
	"time"
)

// PlayersSeparator joins participant names when they are stored as a single field.
const PlayersSeparator = ", "

type Session struct {
	ID       string        `json:"id"`
	GameID   string        `json:"gameId"`   // FK to Game.ID
	GameName string        `json:"gameName"` // Copied from the game at creation time
	PlayedAt time.Time     `json:"dateTime"` // Creation time, set by the session service
	Players  []string      `json:"players"`  // Ordered participant names
	Winner   string        `json:"winner"`   // One of Players
	Status   SessionStatus `json:"status"`
}

// HasPlayer reports whether name is one of the session participants.
func (s Session) HasPlayer(name string) bool {
	for _, p := range s.Players {
		if p == name {
			return true
		}
	}
	return false
}

func (s Session) PlayersString() string {
	return strings.Join(s.Players, PlayersSeparator)
}

// SplitPlayers is the inverse of PlayersString. Blank entries are dropped.
func SplitPlayers(v string) []string {
	var players []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			players = append(players, p)
		}
	}
	return players
}
