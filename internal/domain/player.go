package domain

// PlayerStats aggregates a player's finished rounds.
type PlayerStats struct {
	Games        int
	Wins         int
	TotalScore   int
	AverageScore float64
	Tier         PlayerTier
}
