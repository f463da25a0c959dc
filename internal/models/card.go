// internal/models/card.go
package models

// Card is a single taboo card. Cards come from the catalog and are never mutated.
type Card struct {
	ID     string   `json:"id"`
	Target string   `json:"target"`
	Taboos []string `json:"taboos"`
}
