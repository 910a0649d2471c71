package model

import "time"

// PlaybookStatus tracks a playbook through the resolution loop.
type PlaybookStatus string

const (
	// PlaybookStatusGenerating means a generation job is queued or running.
	PlaybookStatusGenerating PlaybookStatus = "generating"
	// PlaybookStatusDraft means plays exist but the playbook has not been validated.
	PlaybookStatusDraft PlaybookStatus = "draft"
	// PlaybookStatusFailed means the generation job exhausted its attempts.
	PlaybookStatusFailed PlaybookStatus = "failed"
)

// Playbook is a named, ordered set of plays. It is mutated only through the
// transformers, which deep-clone before touching anything, so a caller's
// reference stays valid until it swaps in the returned copy.
//
// Invariant: the Sequence values of Plays are exactly 1..N in execution
// order. The refinement transformer rebuilds this after every mutation.
type Playbook struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Plays       []Play         `json:"plays"`
	Active      bool           `json:"active"`
	Status      PlaybookStatus `json:"status,omitempty"`
	// Issues are the diagnostic strings the response transformer collected
	// during generation, kept for the operator alongside the playbook.
	Issues    []string  `json:"issues,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Playbook) Clone() Playbook {
	plays := make([]Play, len(p.Plays))
	for i := range p.Plays {
		plays[i] = p.Plays[i].Clone()
	}
	p.Plays = plays
	if p.Issues != nil {
		p.Issues = append([]string(nil), p.Issues...)
	}
	return p
}

// FindPlayByID returns the play with the given id, or nil.
func (p *Playbook) FindPlayByID(id string) *Play {
	for i := range p.Plays {
		if p.Plays[i].ID == id {
			return &p.Plays[i]
		}
	}
	return nil
}
