package models

type Game struct {
	ID          string `json:"id"`          // Assigned by the store on create
	Name        string `json:"name"`        // Unique, case-insensitive lookup key
	Description string `json:"description"` // Free text
	Category    string `json:"category"`    // e.g. Strategy, Party
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
	AverageTime int    `json:"averageTime"` // Minutes
}

// Supports reports whether the game can be played by n players.
func (g Game) Supports(n int) bool {
	return g.MinPlayers <= n && n <= g.MaxPlayers
}
