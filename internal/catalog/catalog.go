// internal/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jason-s-yu/taboo/internal/models"
)

// ErrEmptyCatalog is returned when a catalog would contain no cards. Rooms cannot
// draw from an empty catalog, so this is fatal at startup.
var ErrEmptyCatalog = errors.New("card catalog is empty")

// Catalog is the immutable set of cards shared by every room. It is safe for
// concurrent use because nothing mutates it after New returns.
type Catalog struct {
	cards []models.Card
	byID  map[string]int
}

// New validates cards and builds a catalog. Cards need a non-empty unique id and
// a non-empty target.
func New(cards []models.Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		cards: make([]models.Card, 0, len(cards)),
		byID:  make(map[string]int, len(cards)),
	}
	for i, card := range cards {
		if card.ID == "" {
			return nil, fmt.Errorf("card at index %d has no id", i)
		}
		if strings.TrimSpace(card.Target) == "" {
			return nil, fmt.Errorf("card %s has no target", card.ID)
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %s", card.ID)
		}
		taboos := make([]string, len(card.Taboos))
		copy(taboos, card.Taboos)
		c.byID[card.ID] = len(c.cards)
		c.cards = append(c.cards, models.Card{ID: card.ID, Target: card.Target, Taboos: taboos})
	}
	return c, nil
}

// LoadFile reads a JSON array of cards from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card file %s: %w", path, err)
	}
	var cards []models.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse card file %s: %w", path, err)
	}
	return New(cards)
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// IDs returns a fresh slice of every card id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.cards))
	for i, card := range c.cards {
		ids[i] = card.ID
	}
	return ids
}

// Card looks up a card by id. The returned card's taboo slice is a copy.
func (c *Catalog) Card(id string) (models.Card, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Card{}, false
	}
	card := c.cards[i]
	taboos := make([]string, len(card.Taboos))
	copy(taboos, card.Taboos)
	return models.Card{ID: card.ID, Target: card.Target, Taboos: taboos}, true
}

// Cards returns copies of every card in catalog order.
func (c *Catalog) Cards() []models.Card {
	out := make([]models.Card, 0, len(c.cards))
	for _, id := range c.IDs() {
		card, _ := c.Card(id)
		out = append(out, card)
	}
	return out
}
