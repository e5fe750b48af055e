package models

import "time"

// MemoryTurn is one role/content record within a session, embedded for
// vector search and tagged with the entities it mentions.
type MemoryTurn struct {
	ID         string    `json:"id"`
	SessionKey string    `json:"session_key"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	EntityIDs  []string  `json:"entity_ids,omitempty"`
	Embedding  []float32 `json:"-"`
}

// MemoryEntity is a canonical named entity referenced by one or more turns,
// with weighted co-occurrence edges to other entities. Entities and turns
// are kept in separate tables keyed by ID (REDESIGN FLAG in spec.md §9) so
// the graph is traversable without in-memory pointer cycles.
type MemoryEntity struct {
	ID            string             `json:"id"`
	SessionKey    string             `json:"session_key"`
	CanonicalName string             `json:"canonical_name"`
	Type          string             `json:"type"`
	TurnIDs       []string           `json:"turn_ids,omitempty"`
	Adjacency     map[string]float64 `json:"adjacency,omitempty"` // entity id -> co-occurrence weight
}

// RetrievedTurn pairs a MemoryTurn with the hybrid score that ranked it.
type RetrievedTurn struct {
	Turn  MemoryTurn `json:"turn"`
	Score float64    `json:"score"`
}
