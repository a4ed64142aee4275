package core

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID          string
	Workers     int
	Queued      int
	Active      int
	Outstanding int // Queued + Active, what Barrier waits for
	Running     bool
	Closed      bool
}
