package models

import "time"

// Winner is the outcome of a finished game.
type Winner string

const (
	WinnerPlayer Winner = "player"
	WinnerBot    Winner = "bot"
	WinnerDraw   Winner = "draw"
)

// Move is one card play inside a stored game.
type Move struct {
	CardID string `json:"cardId" bson:"cardId" validate:"required"`
	Type   string `json:"type" bson:"type" validate:"required"`
	By     string `json:"by,omitempty" bson:"by,omitempty" validate:"omitempty,oneof=player bot"`
}

// GameRecord is the summary of one finished game, owned by UserID.
type GameRecord struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	PlayerScore int       `json:"playerScore" bson:"playerScore"`
	BotScore    int       `json:"botScore" bson:"botScore"`
	Winner      Winner    `json:"winner" bson:"winner"`
	Duration    int       `json:"duration" bson:"duration"` // seconds
	Moves       []Move    `json:"moves" bson:"moves"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RecordPatch lists the fields an owner may change on a stored game.
// Nil fields are left as they are.
type RecordPatch struct {
	PlayerScore *int    `json:"playerScore" validate:"omitempty,min=0"`
	BotScore    *int    `json:"botScore" validate:"omitempty,min=0"`
	Winner      *Winner `json:"winner" validate:"omitempty,oneof=player bot draw"`
	Duration    *int    `json:"duration" validate:"omitempty,min=0"`
	Moves       *[]Move `json:"moves" validate:"omitempty,dive"`
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.PlayerScore == nil && p.BotScore == nil && p.Winner == nil && p.Duration == nil && p.Moves == nil
}

// ApplyTo returns r with the patch applied and UpdatedAt set to now.
func (p RecordPatch) ApplyTo(r GameRecord, now time.Time) GameRecord {
	if p.PlayerScore != nil {
		r.PlayerScore = *p.PlayerScore
	}
	if p.BotScore != nil {
		r.BotScore = *p.BotScore
	}
	if p.Winner != nil {
		r.Winner = *p.Winner
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.Moves != nil {
		r.Moves = append([]Move{}, (*p.Moves)...)
	}
	r.UpdatedAt = now
	return r
}
