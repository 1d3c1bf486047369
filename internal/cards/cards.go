// internal/cards/cards.go
//
// Card catalog for the game engine.
//
// Responsibilities:
//   - Define the card shape and the six known card types.
//   - Load the catalog from a JSON file when configured, or fall back to the
//     embedded default from the assets package.
//   - Provide lookups by id for the session endpoints.
//
// Catalogs are immutable once loaded and safe to share across goroutines.

package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/assets"
)

// Type names a card effect.
type Type string

const (
	Tree       Type = "tree"
	Fire       Type = "fire"
	Lumberjack Type = "lumberjack"
	Politician Type = "politician"
	Contract   Type = "contract"
	Wildfire   Type = "wildfire"
)

// Known reports whether t is one of the six card types the engine understands.
func (t Type) Known() bool {
	switch t {
	case Tree, Fire, Lumberjack, Politician, Contract, Wildfire:
		return true
	}
	return false
}

// Card is a single card definition.
type Card struct {
	ID    string `json:"id"`
	Type  Type   `json:"type"`
	Value int    `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Catalog is an ordered, read-only set of cards.
type Catalog struct {
	cards []Card
	byID  map[string]Card
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		b, err := assets.CardsJSON()
		if err != nil {
			defaultErr = fmt.Errorf("read embedded cards: %w", err)
			return
		}
		defaultCat, defaultErr = Parse(b)
	})
	return defaultCat, defaultErr
}

// Load reads a catalog from path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cards file %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a JSON array of cards.
// Ids must be present and unique; unknown types are accepted (they play as no-ops).
func Parse(b []byte) (*Catalog, error) {
	var list []Card
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("cards: catalog is empty")
	}
	c := &Catalog{cards: list, byID: make(map[string]Card, len(list))}
	for _, card := range list {
		if card.ID == "" {
			return nil, errors.New("cards: card with empty id")
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("cards: duplicate id %q", card.ID)
		}
		if !card.Type.Known() {
			log.Warn().Str("card", card.ID).Str("type", string(card.Type)).Msg("unknown card type, plays as no-op")
		}
		c.byID[card.ID] = card
	}
	return c, nil
}

// Lookup returns the card with the given id.
func (c *Catalog) Lookup(id string) (Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// All returns a copy of the catalog in file order.
func (c *Catalog) All() []Card {
	return append([]Card(nil), c.cards...)
}

// Len returns the number of cards.
func (c *Catalog) Len() int { return len(c.cards) }
