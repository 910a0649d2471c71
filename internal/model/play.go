package model

import "time"

// TaskPriority is the priority a play stamps onto the tasks it creates.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskTemplate describes the task a play instantiates when it fires.
type TaskTemplate struct {
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Priority       TaskPriority `json:"priority"`
	EstimatedHours float64      `json:"estimatedHours,omitempty"`
}

// DependencyType says how a dependency constrains execution.
type DependencyType string

const (
	DependencyCompletion DependencyType = "completion"
	DependencyStart      DependencyType = "start"
)

// PlayDependency links a play to another play in the same playbook.
// PlayID is soft until resolved: resolution is by case-insensitive exact
// title match, and an empty PlayID means the link is still unresolved.
type PlayDependency struct {
	PlayID    string         `json:"playId"`
	PlayTitle string         `json:"playTitle"`
	Type      DependencyType `json:"type"`
}

// Play is one automation rule: a trigger, a task template, an assignment
// target, and dependencies on sibling plays.
type Play struct {
	ID           string           `json:"id"`
	PlaybookID   string           `json:"playbookId"`
	Sequence     int              `json:"sequence"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Trigger      TriggerCondition `json:"trigger"`
	TaskTemplate TaskTemplate     `json:"taskTemplate"`
	Assignment   PlayAssignment   `json:"assignment"`
	Dependencies []PlayDependency `json:"dependencies"`
	Enabled      bool             `json:"enabled"`
	// TriggerDefaulted is set by the response transformer when the proposal
	// carried an unknown trigger type and order_accepted was substituted.
	TriggerDefaulted bool `json:"triggerDefaulted,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	CreatedBy    string           `json:"createdBy"`
}

func (p Play) Clone() Play {
	p.Trigger = p.Trigger.Clone()
	p.Assignment = p.Assignment.Clone()
	p.Dependencies = append([]PlayDependency(nil), p.Dependencies...)
	return p
}
