package state

import (
	"github.com/guminc/EvolvableArchetype/kv"
)

// Stage abstracts pending changes to be written into the kv store.
type Stage struct {
	batch kv.Batch
	err   error
}

// Commit commits the staged changes in one batch write.
func (s *Stage) Commit() error {
	if s.err != nil {
		return s.err
	}
	return s.batch.Write()
}
