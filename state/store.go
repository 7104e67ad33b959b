package state

// Store persists committed document versions.
type Store interface {
	// SaveState writes the document committed at state.LastBlockHeight and
	// marks it as the latest.
	SaveState(State) error

	// LoadState returns the latest committed state, or an empty one.
	LoadState() (State, error)

	// LoadDocument returns the document committed at height.
	LoadDocument(height int64) (*Document, error)
}
