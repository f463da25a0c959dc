// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/models"
)

// Deck is a room's queue of card ids still to be drawn. It is not safe for
// concurrent use; the owning room's lock guards it.
type Deck struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
	ids     []string
}

// NewDeck creates a deck over cat and shuffles it.
func NewDeck(cat *catalog.Catalog, rng *rand.Rand) *Deck {
	d := &Deck{catalog: cat, rng: rng}
	d.Reset()
	return d
}

// Reset discards the remaining ids and replaces them with a fresh uniform
// permutation of the whole catalog.
func (d *Deck) Reset() {
	ids := d.catalog.IDs()
	d.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	d.ids = ids
}

// Draw pops the next card, reshuffling first when the deck is exhausted.
// The catalog is never empty once loaded, so a failed draw means the process
// was misconfigured and we panic.
func (d *Deck) Draw() models.Card {
	if len(d.ids) == 0 {
		d.Reset()
	}
	if len(d.ids) == 0 {
		panic("deck: cannot draw from an empty card catalog")
	}
	id := d.ids[0]
	d.ids = d.ids[1:]
	card, ok := d.catalog.Card(id)
	if !ok {
		panic("deck: card " + id + " missing from catalog")
	}
	return card
}

// Remaining returns how many cards can be drawn before the next reshuffle.
func (d *Deck) Remaining() int {
	return len(d.ids)
}
