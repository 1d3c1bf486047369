// internal/repository/repository.go
//
// Persistence for accounts and game records.
//
// Backends:
//   - sqlite (default): database/sql + go-sqlite3, embedded migrations.
//   - mongo:            users/games collections, multi-document transactions.
//   - memory:           maps behind a mutex, for tests and throwaway runs.
//
// Every backend honors the same contract:
//   - CreateAccount fails with apperr Conflict on duplicate username or email.
//   - CreateRecord stores the record and bumps the owner's stats as one unit;
//     a missing owner fails with NotFound and leaves nothing behind.
//   - Record reads/writes are scoped by owner; a foreign id looks absent.

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forestclash/go-server/internal/models"
)

// Repository is the storage contract used by the services.
type Repository interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	TopAccounts(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// CreateRecord inserts r and returns the owner's updated stats.
	CreateRecord(ctx context.Context, r *models.GameRecord) (models.Stats, error)
	ListRecords(ctx context.Context, userID string, limit int) ([]models.GameRecord, error)
	GetRecord(ctx context.Context, userID, id string) (*models.GameRecord, error)
	UpdateRecord(ctx context.Context, userID, id string, p models.RecordPatch, now time.Time) (*models.GameRecord, error)
	DeleteRecord(ctx context.Context, userID, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver        string // sqlite | mongo | memory
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// Open connects to the configured backend.
func Open(ctx context.Context, o Options) (Repository, error) {
	switch o.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, o.SQLitePath)
	case "mongo", "mongodb":
		return OpenMongo(ctx, o.MongoURI, o.MongoDatabase)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("repository: unknown driver %q", o.Driver)
	}
}

const (
	msgDuplicateAccount = "username or email already exists"
	msgAccountNotFound  = "user not found"
	msgGameNotFound     = "game not found"
)
