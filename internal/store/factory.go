package store

import (
	"stitchflow.app/conductor/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Playbooks() PlaybookStore {
	return newPlaybookStore(s.db)
}

func (s *Stores) Plays() PlayStore {
	return newPlayStore(s.db)
}
