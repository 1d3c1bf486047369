// internal/records/service.go
//
// Game history owned by one account. Creating a record also updates the
// owner's stats (done atomically by the repository); update and delete never
// touch stats.

package records

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
	"github.com/forestclash/go-server/internal/repository"
)

// ListLimit caps List results.
const ListLimit = 20

// CreateInput is the body of a create request.
type CreateInput struct {
	PlayerScore int           `json:"playerScore" validate:"min=0"`
	BotScore    int           `json:"botScore" validate:"min=0"`
	Winner      models.Winner `json:"winner" validate:"required,oneof=player bot draw"`
	Duration    int           `json:"duration" validate:"min=0"`
	Moves       []models.Move `json:"moves" validate:"dive"`
}

// Invalidator is notified after a record changes stats.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service implements the record operations.
type Service struct {
	repo    repository.Repository
	now     func() time.Time
	onStats Invalidator
}

// NewService wires a Service. onStats may be nil.
func NewService(repo repository.Repository, onStats Invalidator) *Service {
	return &Service{repo: repo, now: time.Now, onStats: onStats}
}

// Create stores a record for uid and returns it with the owner's new stats.
func (s *Service) Create(ctx context.Context, uid string, in CreateInput) (*models.GameRecord, models.Stats, error) {
	in.Winner = models.Winner(strings.TrimSpace(string(in.Winner)))
	if err := apperr.Validate(in); err != nil {
		return nil, models.Stats{}, err
	}

	now := s.now().UTC()
	r := &models.GameRecord{
		ID:          models.NewID(),
		UserID:      uid,
		PlayerScore: in.PlayerScore,
		BotScore:    in.BotScore,
		Winner:      in.Winner,
		Duration:    in.Duration,
		Moves:       append([]models.Move{}, in.Moves...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stats, err := s.repo.CreateRecord(ctx, r)
	if err != nil {
		return nil, models.Stats{}, err
	}
	log.Debug().Str("user_id", uid).Str("game_id", r.ID).Str("winner", string(r.Winner)).Msg("game saved")
	if s.onStats != nil {
		s.onStats.Invalidate(ctx)
	}
	return r, stats, nil
}

// List returns the newest records of uid.
func (s *Service) List(ctx context.Context, uid string) ([]models.GameRecord, error) {
	return s.repo.ListRecords(ctx, uid, ListLimit)
}

// Get returns one record of uid.
func (s *Service) Get(ctx context.Context, uid, id string) (*models.GameRecord, error) {
	return s.repo.GetRecord(ctx, uid, id)
}

// Update applies p to one record of uid.
func (s *Service) Update(ctx context.Context, uid, id string, p models.RecordPatch) (*models.GameRecord, error) {
	if p.Winner != nil {
		w := models.Winner(strings.TrimSpace(string(*p.Winner)))
		p.Winner = &w
	}
	if err := apperr.Validate(p); err != nil {
		return nil, err
	}
	if p.Empty() {
		return s.repo.GetRecord(ctx, uid, id)
	}
	return s.repo.UpdateRecord(ctx, uid, id, p, s.now().UTC())
}

// Delete removes one record of uid.
func (s *Service) Delete(ctx context.Context, uid, id string) error {
	return s.repo.DeleteRecord(ctx, uid, id)
}
