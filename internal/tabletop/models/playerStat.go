package models

// PlayerStat is derived from sessions on demand and never persisted.
type PlayerStat struct {
	Player        string  `json:"player"`
	Wins          int     `json:"wins"`
	TotalGames    int     `json:"total_games"`
	WinPercentage float64 `json:"win_percentage"`
}

// Percentage returns wins/total*100, or 0 when total is 0.
func Percentage(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}
