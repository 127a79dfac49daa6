package entity

// Checkpoint records the last chain log the indexer fully applied.
// Operators read it for freshness; the external scanner reads it to
// know where to resume after a restart.
type Checkpoint struct {
	TxHash         string
	LogIndex       uint32
	BlockTimestamp int64
	EventsApplied  int64 // lifetime count, duplicates excluded
}
