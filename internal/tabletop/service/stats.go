package service

import (
	"sort"
	"strings"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
)

// ComputeWinStatistics derives per-player statistics for gameName from raw
// sessions. Every distinct participant of a matching session is listed, with
// zero wins if they never won. TotalGames is the number of matching sessions
// regardless of status. The result is ordered with SortStats.
func ComputeWinStatistics(sessions []models.Session, gameName string) []models.PlayerStat {
	wins := make(map[string]int)
	total := 0

	for _, s := range sessions {
		if !strings.EqualFold(s.GameName, gameName) {
			continue
		}
		total++

		seen := make(map[string]bool, len(s.Players))
		for _, p := range s.Players {
			if seen[p] {
				continue
			}
			seen[p] = true
			if p == s.Winner {
				wins[p]++
			} else if _, ok := wins[p]; !ok {
				wins[p] = 0
			}
		}
	}

	stats := make([]models.PlayerStat, 0, len(wins))
	for player, w := range wins {
		stats = append(stats, models.PlayerStat{
			Player:        player,
			Wins:          w,
			TotalGames:    total,
			WinPercentage: models.Percentage(w, total),
		})
	}
	SortStats(stats)
	return stats
}

// SortStats orders by wins descending; equal wins are ordered by player name.
func SortStats(stats []models.PlayerStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Wins != stats[j].Wins {
			return stats[i].Wins > stats[j].Wins
		}
		return stats[i].Player < stats[j].Player
	})
}
