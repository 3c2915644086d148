package render

import (
	"testing"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/stretchr/testify/require"
)

func Test_Percentage_Uses_One_Decimal(t *testing.T) {
	require.Equal(t, "66.7%", Percentage(200.0/3))
	require.Equal(t, "33.3%", Percentage(100.0/3))
	require.Equal(t, "100.0%", Percentage(100))
	require.Equal(t, "0.0%", Percentage(0))
}

func Test_Stats_Ranks_Players(t *testing.T) {
	stats := []models.PlayerStat{
		{Player: "A", Wins: 2, TotalGames: 3, WinPercentage: 200.0 / 3},
		{Player: "B", Wins: 1, TotalGames: 3, WinPercentage: 100.0 / 3},
	}

	out := Stats("Chess", stats)

	require.Equal(t, "Win statistics for Chess (3 games)\n1. A: 2 wins, 66.7%\n2. B: 1 wins, 33.3%", out)
	require.Equal(t, "No sessions recorded for Chess.", Stats("Chess", nil))
}

func Test_GameList_Numbers_Games(t *testing.T) {
	games := []models.Game{
		{Name: "Catan", MinPlayers: 3, MaxPlayers: 4, AverageTime: 90},
		{Name: "Chess", MinPlayers: 2, MaxPlayers: 2, AverageTime: 30},
	}

	require.Equal(t, "Games:\n1. Catan (3-4 players, 90 min)\n2. Chess (2-2 players, 30 min)", GameList("Games:", games, NoGames))
	require.Equal(t, NoGames, GameList("Games:", nil, NoGames))
}

func Test_GameDetail_Skips_Empty_Fields(t *testing.T) {
	out := GameDetail(models.Game{ID: "g1", Name: "Go", MinPlayers: 2, MaxPlayers: 2, AverageTime: 60})

	require.Equal(t, "Go\nPlayers: 2-2\nAverage time: 60 min\nID: g1", out)
}

func Test_Session_Renders_In_Location(t *testing.T) {
	s := models.Session{
		GameName: "Chess",
		PlayedAt: time.Date(2024, 3, 2, 23, 15, 0, 0, time.UTC),
		Players:  []string{"Anna", "Boris"},
		Winner:   "Anna",
		Status:   models.StatusOpen,
	}

	out := Session(s, time.FixedZone("UTC+2", 2*60*60))

	require.Equal(t, "Game: Chess\nDate: 2024-03-03 01:15\nPlayers: Anna, Boris\nWinner: Anna\nStatus: OPEN", out)
	require.Equal(t, NoSessions, SessionList("Recent:", nil, time.UTC, NoSessions))
}
