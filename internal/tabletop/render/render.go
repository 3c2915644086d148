// Package render turns catalog and session data into the plain text messages
// returned alongside API payloads.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/shopspring/decimal"
)

const sessionTimeLayout = "2006-01-02 15:04"

const (
	NoGames         = "No games in the catalog yet."
	NoMatchingGames = "No games match your request."
	NoSessions      = "No sessions recorded yet."
	NoHistory       = "No sessions match the filter."
)

// NoStats is the message for a game without recorded sessions.
func NoStats(gameName string) string {
	return fmt.Sprintf("No sessions recorded for %s.", gameName)
}

// Percentage formats p with one decimal place, rounding half away from zero.
func Percentage(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(1) + "%"
}

// GameShort is the one-line form used in lists.
func GameShort(g models.Game) string {
	return fmt.Sprintf("%s (%d-%d players, %d min)", g.Name, g.MinPlayers, g.MaxPlayers, g.AverageTime)
}

func GameDetail(g models.Game) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", g.Name)
	if g.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", g.Description)
	}
	fmt.Fprintf(&b, "Players: %d-%d\n", g.MinPlayers, g.MaxPlayers)
	fmt.Fprintf(&b, "Average time: %d min\n", g.AverageTime)
	if g.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", g.Category)
	}
	fmt.Fprintf(&b, "ID: %s", g.ID)
	return b.String()
}

// GameList numbers the games under title. An empty list yields empty.
func GameList(title string, games []models.Game, empty string) string {
	if len(games) == 0 {
		return empty
	}
	var b strings.Builder
	b.WriteString(title)
	for i, g := range games {
		fmt.Fprintf(&b, "\n%d. %s", i+1, GameShort(g))
	}
	return b.String()
}

// Session renders a single session with its date in loc.
func Session(s models.Session, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("Game: %s\nDate: %s\nPlayers: %s\nWinner: %s\nStatus: %s",
		s.GameName, s.PlayedAt.In(loc).Format(sessionTimeLayout), s.PlayersString(), s.Winner, s.Status)
}

func SessionList(title string, sessions []models.Session, loc *time.Location, empty string) string {
	if len(sessions) == 0 {
		return empty
	}
	parts := make([]string, 0, len(sessions)+1)
	parts = append(parts, title)
	for _, s := range sessions {
		parts = append(parts, Session(s, loc))
	}
	return strings.Join(parts, "\n\n")
}

// Stats renders a ranked table for gameName. stats is expected to be sorted.
func Stats(gameName string, stats []models.PlayerStat) string {
	if len(stats) == 0 {
		return NoStats(gameName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Win statistics for %s (%d games)", gameName, stats[0].TotalGames)
	for i, st := range stats {
		fmt.Fprintf(&b, "\n%d. %s: %d wins, %s", i+1, st.Player, st.Wins, Percentage(st.WinPercentage))
	}
	return b.String()
}
