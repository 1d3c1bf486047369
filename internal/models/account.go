package models

import "time"

// Stats are an account's aggregate results.
// They change only as a side effect of creating a game record.
type Stats struct {
	GamesPlayed  int `json:"gamesPlayed" bson:"gamesPlayed"`
	GamesWon     int `json:"gamesWon" bson:"gamesWon"`
	GamesLost    int `json:"gamesLost" bson:"gamesLost"`
	HighestScore int `json:"highestScore" bson:"highestScore"`
}

// Record returns the stats after counting one more finished game.
// A draw counts as a loss so GamesPlayed == GamesWon + GamesLost always holds.
func (s Stats) Record(winner Winner, playerScore int) Stats {
	s.GamesPlayed++
	if winner == WinnerPlayer {
		s.GamesWon++
	} else {
		s.GamesLost++
	}
	if playerScore > s.HighestScore {
		s.HighestScore = playerScore
	}
	return s
}

// Account is a registered player.
type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Stats        Stats     `json:"stats" bson:"stats"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// LeaderboardEntry is the public projection of an account.
type LeaderboardEntry struct {
	Username string `json:"username" bson:"username"`
	Stats    Stats  `json:"stats" bson:"stats"`
}
