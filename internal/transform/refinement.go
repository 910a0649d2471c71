package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stitchflow.app/conductor/internal/model"
)

// ErrPlayNotFound marks an edit or remove whose target matched no play.
var ErrPlayNotFound = errors.New("play not found")

// OperationAction is the kind of structured edit a refinement request carries.
type OperationAction string

const (
	OpAdd    OperationAction = "add"
	OpEdit   OperationAction = "edit"
	OpRemove OperationAction = "remove"
)

// Operation is one structured edit. Target identifies the play for edit and
// remove: matched by id first, then case-insensitive exact title, then
// case-insensitive substring in either direction.
type Operation struct {
	Action    OperationAction `json:"action"`
	Target    string          `json:"target,omitempty"`
	NewPlay   *RawPlay        `json:"newPlay,omitempty"`
	Sequence  *int            `json:"sequence,omitempty"`
	Patch     *PlayPatch      `json:"patch,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
}

// PlayPatch carries the fields an edit operation may change. Nil means
// "leave alone". Trigger merges field-by-field when the variant tag matches
// the existing trigger and replaces wholesale when it does not.
type PlayPatch struct {
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Enabled      *bool            `json:"enabled,omitempty"`
	Sequence     *int             `json:"sequence,omitempty"`
	Trigger      *RawTrigger      `json:"trigger,omitempty"`
	TaskTemplate *RawTask         `json:"taskTemplate,omitempty"`
	Dependencies *[]RawDependency `json:"dependencies,omitempty"`
}

// AppliedOperation records one successfully applied operation.
type AppliedOperation struct {
	Operation Operation `json:"operation"`
	Change    string    `json:"change"`
}

// SkippedOperation records one operation that failed and was skipped.
type SkippedOperation struct {
	Operation Operation `json:"operation"`
	Error     string    `json:"error"`
}

// RefinementResult is the outcome of applying one operation batch. The batch
// is best-effort, not transactional: Applied and Skipped partition the input
// operations, and Changes is the flat human-readable log of both.
type RefinementResult struct {
	Playbook model.Playbook     `json:"playbook"`
	Applied  []AppliedOperation `json:"applied"`
	Skipped  []SkippedOperation `json:"skipped"`
	Changes  []string           `json:"changes"`
}

// RefinementTransformer applies structured add/edit/remove batches to an
// already-persisted playbook.
type RefinementTransformer struct {
	response *ResponseTransformer
}

func NewRefinementTransformer(response *ResponseTransformer) *RefinementTransformer {
	return &RefinementTransformer{response: response}
}

// Apply deep-clones the playbook once and applies operations strictly in
// order against the clone. A failing operation is recorded and skipped;
// later operations still see the effects of earlier successful ones.
// Whatever the operations did internally, the play list comes back sorted by
// sequence and renumbered 1..N.
func (t *RefinementTransformer) Apply(pb model.Playbook, ops []Operation, actor string) RefinementResult {
	clone := pb.Clone()
	result := RefinementResult{
		Applied: []AppliedOperation{},
		Skipped: []SkippedOperation{},
		Changes: []string{},
	}

	for _, op := range ops {
		change, err := t.applyOne(&clone, op, actor)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedOperation{Operation: op, Error: err.Error()})
			result.Changes = append(result.Changes, fmt.Sprintf("skipped %s: %v", op.Action, err))
			continue
		}
		result.Applied = append(result.Applied, AppliedOperation{Operation: op, Change: change})
		result.Changes = append(result.Changes, change)
	}

	sort.SliceStable(clone.Plays, func(a, b int) bool {
		return clone.Plays[a].Sequence < clone.Plays[b].Sequence
	})
	Resequence(clone.Plays)
	clone.UpdatedAt = time.Now().UTC()

	result.Playbook = clone
	return result
}

func (t *RefinementTransformer) applyOne(pb *model.Playbook, op Operation, actor string) (string, error) {
	switch op.Action {
	case OpAdd:
		return t.applyAdd(pb, op, actor)
	case OpEdit:
		return t.applyEdit(pb, op)
	case OpRemove:
		return t.applyRemove(pb, op)
	default:
		return "", fmt.Errorf("unknown action %q", op.Action)
	}
}

func (t *RefinementTransformer) applyAdd(pb *model.Playbook, op Operation, actor string) (string, error) {
	if op.NewPlay == nil {
		return "", fmt.Errorf("add operation has no play")
	}

	play, _, err := t.response.TransformPlay(*op.NewPlay, pb.ID, actor, pb.Plays)
	if err != nil {
		return "", fmt.Errorf("transforming new play: %w", err)
	}

	if op.Sequence != nil && *op.Sequence > 0 {
		// Make room: everything at or after the target slot moves down one.
		for i := range pb.Plays {
			if pb.Plays[i].Sequence >= *op.Sequence {
				pb.Plays[i].Sequence++
			}
		}
		play.Sequence = *op.Sequence
	} else {
		play.Sequence = len(pb.Plays) + 1
	}

	pb.Plays = append(pb.Plays, play)
	return fmt.Sprintf("added play %q at sequence %d", play.Title, play.Sequence), nil
}

func (t *RefinementTransformer) applyEdit(pb *model.Playbook, op Operation) (string, error) {
	play, err := findPlay(pb, op.Target)
	if err != nil {
		return "", err
	}
	if op.Patch == nil {
		return "", fmt.Errorf("edit operation for %q has no patch", play.Title)
	}
	patch := op.Patch

	if patch.Title != nil {
		play.Title = *patch.Title
	}
	if patch.Description != nil {
		play.Description = *patch.Description
	}
	if patch.Enabled != nil {
		play.Enabled = *patch.Enabled
	}
	if patch.Trigger != nil {
		play.Trigger = model.NewTriggerCondition(mergeTrigger(play.Trigger.Trigger, *patch.Trigger))
		play.TriggerDefaulted = false
	}
	if patch.TaskTemplate != nil {
		mergeTaskTemplate(&play.TaskTemplate, *patch.TaskTemplate)
	}
	if patch.Dependencies != nil {
		deps := make([]model.PlayDependency, 0, len(*patch.Dependencies))
		for _, d := range *patch.Dependencies {
			depType := model.DependencyType(d.Type)
			if depType == "" {
				depType = model.DependencyCompletion
			}
			deps = append(deps, model.PlayDependency{PlayTitle: d.PlayTitle, Type: depType})
		}
		play.Dependencies = deps
		titles := titleIndex(pb.Plays)
		for i := range play.Dependencies {
			play.Dependencies[i].PlayID = titles[strings.ToLower(play.Dependencies[i].PlayTitle)]
		}
	}
	if patch.Sequence != nil && *patch.Sequence != play.Sequence {
		shiftForMove(pb, play, *patch.Sequence)
		play.Sequence = *patch.Sequence
	}

	play.UpdatedAt = time.Now().UTC()
	return fmt.Sprintf("edited play %q", play.Title), nil
}

func (t *RefinementTransformer) applyRemove(pb *model.Playbook, op Operation) (string, error) {
	play, err := findPlay(pb, op.Target)
	if err != nil {
		return "", err
	}
	removedID := play.ID
	removedTitle := play.Title

	plays := pb.Plays[:0]
	for i := range pb.Plays {
		if pb.Plays[i].ID == removedID {
			continue
		}
		plays = append(plays, pb.Plays[i])
	}
	pb.Plays = plays

	// Never leave a dependency dangling at the removed play.
	for p := range pb.Plays {
		deps := pb.Plays[p].Dependencies[:0]
		for _, d := range pb.Plays[p].Dependencies {
			if d.PlayID == removedID {
				continue
			}
			deps = append(deps, d)
		}
		pb.Plays[p].Dependencies = deps
	}

	return fmt.Sprintf("removed play %q", removedTitle), nil
}

// shiftForMove renumbers every other play between the target's old and new
// position so the move leaves no duplicate slots before the final resort.
func shiftForMove(pb *model.Playbook, target *model.Play, newSeq int) {
	oldSeq := target.Sequence
	for i := range pb.Plays {
		p := &pb.Plays[i]
		if p.ID == target.ID {
			continue
		}
		switch {
		case newSeq < oldSeq && p.Sequence >= newSeq && p.Sequence < oldSeq:
			p.Sequence++
		case newSeq > oldSeq && p.Sequence > oldSeq && p.Sequence <= newSeq:
			p.Sequence--
		}
	}
}

// findPlay locates a play by id, then exact title, then substring title.
// The error lists every available title so the caller can surface a precise
// diagnostic.
func findPlay(pb *model.Playbook, target string) (*model.Play, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("no target play given")
	}

	for i := range pb.Plays {
		if pb.Plays[i].ID == target {
			return &pb.Plays[i], nil
		}
	}
	for i := range pb.Plays {
		if strings.EqualFold(pb.Plays[i].Title, target) {
			return &pb.Plays[i], nil
		}
	}
	lower := strings.ToLower(target)
	for i := range pb.Plays {
		title := strings.ToLower(pb.Plays[i].Title)
		if strings.Contains(title, lower) || strings.Contains(lower, title) {
			return &pb.Plays[i], nil
		}
	}

	titles := make([]string, len(pb.Plays))
	for i := range pb.Plays {
		titles[i] = fmt.Sprintf("%q (id %s)", pb.Plays[i].Title, pb.Plays[i].ID)
	}
	return nil, fmt.Errorf("%w: no play matching %q; available plays: %s", ErrPlayNotFound, target, strings.Join(titles, ", "))
}

// mergeTrigger merges the raw patch into the existing trigger when the
// variant tag matches; a cross-variant patch replaces the trigger wholesale.
func mergeTrigger(existing model.Trigger, raw RawTrigger) model.Trigger {
	incomingType := model.TriggerType(raw.Type)
	if existing == nil || (raw.Type != "" && incomingType != existing.TriggerType()) {
		mapped, _ := mapTrigger(raw)
		return mapped
	}

	switch cur := existing.(type) {
	case model.WorkflowStageChangeTrigger:
		if raw.WorkflowID != "" {
			cur.WorkflowID = raw.WorkflowID
		}
		if raw.WorkflowName != "" {
			cur.WorkflowName = raw.WorkflowName
		}
		if raw.StageID != "" {
			cur.StageID = raw.StageID
		}
		if raw.StageName != "" {
			cur.StageName = raw.StageName
		}
		if raw.Condition != "" {
			cur.Condition = model.StageCondition(raw.Condition)
		}
		return cur
	case model.TaskCompletionTrigger:
		if raw.TaskID != "" {
			cur.TaskID = raw.TaskID
		}
		if raw.TaskTitle != "" {
			cur.TaskTitle = raw.TaskTitle
		}
		if raw.AnyTaskMatching != "" {
			cur.AnyTaskMatching = raw.AnyTaskMatching
		}
		return cur
	case model.DateBasedTrigger:
		if raw.Mode != "" {
			cur.Mode = model.DateMode(raw.Mode)
		}
		if raw.Date != "" {
			cur.Date = raw.Date
		}
		if raw.Days != 0 || raw.RelativeTo != "" {
			cur.Relative = &model.RelativeDate{Days: raw.Days, RelativeTo: raw.RelativeTo}
		}
		return cur
	case model.TimeBasedTrigger:
		if raw.Frequency != "" {
			cur.Frequency = model.TimeFrequency(raw.Frequency)
		}
		if raw.Time != "" {
			cur.Time = raw.Time
		}
		if raw.Weekday != "" {
			cur.Weekday = raw.Weekday
		}
		if raw.DayOfMonth != 0 {
			cur.DayOfMonth = raw.DayOfMonth
		}
		if raw.Timezone != "" {
			cur.Timezone = raw.Timezone
		}
		return cur
	case model.CapacityBasedTrigger:
		if raw.TeamID != "" {
			cur.TeamID = raw.TeamID
		}
		if raw.TeamName != "" {
			cur.TeamName = raw.TeamName
		}
		if raw.ThresholdType != "" {
			cur.ThresholdType = model.ThresholdType(raw.ThresholdType)
		}
		if raw.ThresholdPercent != 0 {
			cur.ThresholdPercent = raw.ThresholdPercent
		}
		return cur
	case model.OrderCompletionPreviousTrigger:
		if raw.LookbackOrders != 0 {
			cur.LookbackOrders = raw.LookbackOrders
		}
		return cur
	case model.OrderAcceptedTrigger, model.OrderCompletedTrigger:
		return cur
	default:
		return existing
	}
}

func mergeTaskTemplate(task *model.TaskTemplate, raw RawTask) {
	if raw.Title != "" {
		task.Title = raw.Title
	}
	if raw.Description != "" {
		task.Description = raw.Description
	}
	if raw.Priority != "" {
		task.Priority = model.TaskPriority(strings.ToLower(raw.Priority))
	}
	if raw.EstimatedHours != 0 {
		task.EstimatedHours = raw.EstimatedHours
	}
}
