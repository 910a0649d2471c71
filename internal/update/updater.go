package update

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stitchflow.app/conductor/internal/model"
)

// FieldUpdate is a resolved (question, answer) pair: which play, which
// field, what value. Value is a string except for assignment.userIds, which
// is a []string split from the comma-separated answer.
type FieldUpdate struct {
	PlayIndex *int
	PlayID    string
	Path      FieldPath
	Value     any
}

// Updater maps free-text answers back onto typed playbook fields.
type Updater struct{}

func NewUpdater() *Updater {
	return &Updater{}
}

// MapAnswerToField turns a question and its freeform answer into a field
// update. Coercion is special-cased per field: userIds answers split on
// commas, priorities lower-case, everything else stays the raw string.
func (u *Updater) MapAnswerToField(q model.EnrichmentQuestion, answer string) (FieldUpdate, error) {
	if q.Field == "" {
		return FieldUpdate{}, fmt.Errorf("question %s has no field path", q.ID)
	}
	path, err := ParsePath(q.Field)
	if err != nil {
		return FieldUpdate{}, fmt.Errorf("question %s: %w", q.ID, err)
	}

	answer = strings.TrimSpace(answer)
	upd := FieldUpdate{
		PlayIndex: q.PlayIndex,
		PlayID:    q.PlayID,
		Path:      path,
		Value:     answer,
	}

	switch {
	case path.Parent == ParentAssignment && path.Field == "userIds":
		parts := strings.Split(answer, ",")
		ids := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
		upd.Value = ids
	case path.Parent == ParentTaskTemplate && path.Field == "priority":
		upd.Value = strings.ToLower(answer)
	}

	return upd, nil
}

// ApplyUpdate deep-clones the playbook and applies one field update.
// Updates addressed at a sum-typed field are a no-op when the play's current
// variant does not carry that field.
func (u *Updater) ApplyUpdate(pb model.Playbook, upd FieldUpdate) (model.Playbook, error) {
	clone := pb.Clone()

	// Playbook-level fields carry no play target.
	if upd.PlayIndex == nil && upd.PlayID == "" {
		switch upd.Path.Field {
		case "name":
			clone.Name = stringValue(upd.Value)
		case "description":
			clone.Description = stringValue(upd.Value)
		default:
			return pb, fmt.Errorf("field %q needs a target play", upd.Path)
		}
		clone.UpdatedAt = time.Now().UTC()
		return clone, nil
	}

	play, err := locatePlay(&clone, upd)
	if err != nil {
		return pb, err
	}

	if err := applyToPlay(play, upd); err != nil {
		return pb, err
	}
	play.UpdatedAt = time.Now().UTC()
	clone.UpdatedAt = play.UpdatedAt
	return clone, nil
}

// ApplyAnswers folds a batch of (questionID -> answer) pairs through
// ApplyUpdate one at a time. Answers whose question id is unknown are
// skipped silently; a failing update is recorded and does not stop the rest.
func (u *Updater) ApplyAnswers(pb model.Playbook, questions []model.EnrichmentQuestion, answers map[string]string) (model.Playbook, []string) {
	current := pb
	var issues []string

	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		upd, err := u.MapAnswerToField(q, answer)
		if err != nil {
			issues = append(issues, err.Error())
			continue
		}
		next, err := u.ApplyUpdate(current, upd)
		if err != nil {
			issues = append(issues, fmt.Sprintf("question %s: %v", q.ID, err))
			continue
		}
		current = next
	}

	return current, issues
}

func locatePlay(pb *model.Playbook, upd FieldUpdate) (*model.Play, error) {
	if upd.PlayIndex != nil {
		if *upd.PlayIndex < 0 || *upd.PlayIndex >= len(pb.Plays) {
			return nil, fmt.Errorf("play index %d out of range (%d plays)", *upd.PlayIndex, len(pb.Plays))
		}
		return &pb.Plays[*upd.PlayIndex], nil
	}
	if play := pb.FindPlayByID(upd.PlayID); play != nil {
		return play, nil
	}
	return nil, fmt.Errorf("no play with id %q", upd.PlayID)
}

func applyToPlay(play *model.Play, upd FieldUpdate) error {
	switch upd.Path.Parent {
	case ParentTrigger:
		if trigger, ok := setTriggerField(play.Trigger.Trigger, upd.Path.Field, stringValue(upd.Value)); ok {
			play.Trigger = model.NewTriggerCondition(trigger)
		}
		return nil
	case ParentAssignment:
		if assignment, ok := setAssignmentField(play.Assignment.Assignment, upd.Path.Field, upd.Value); ok {
			play.Assignment = model.NewPlayAssignment(assignment)
		}
		return nil
	case ParentTaskTemplate:
		return setTaskTemplateField(&play.TaskTemplate, upd.Path.Field, stringValue(upd.Value))
	case ParentDependencies:
		if upd.Path.Index >= len(play.Dependencies) {
			return fmt.Errorf("dependency index %d out of range (%d dependencies)", upd.Path.Index, len(play.Dependencies))
		}
		return setDependencyField(&play.Dependencies[upd.Path.Index], upd.Path.Field, stringValue(upd.Value))
	default:
		return setPlayField(play, upd.Path.Field, stringValue(upd.Value))
	}
}

// setTriggerField writes one field into the trigger's current variant.
// Returns false when the field does not belong to the active variant; the
// update is then a deliberate no-op rather than an error, because an answer
// may arrive after the trigger was already edited to a different kind.
func setTriggerField(t model.Trigger, field, value string) (model.Trigger, bool) {
	switch cur := t.(type) {
	case model.WorkflowStageChangeTrigger:
		switch field {
		case "workflowId":
			cur.WorkflowID = value
		case "workflowName":
			cur.WorkflowName = value
		case "stageId":
			cur.StageID = value
		case "stageName":
			cur.StageName = value
		case "condition":
			cur.Condition = model.StageCondition(value)
		default:
			return t, false
		}
		return cur, true
	case model.TaskCompletionTrigger:
		switch field {
		case "taskId":
			cur.TaskID = value
		case "taskTitle":
			cur.TaskTitle = value
		case "anyTaskMatching":
			cur.AnyTaskMatching = value
		default:
			return t, false
		}
		return cur, true
	case model.DateBasedTrigger:
		switch field {
		case "mode":
			cur.Mode = model.DateMode(value)
		case "date":
			cur.Date = value
		case "days":
			days, err := strconv.Atoi(value)
			if err != nil {
				return t, false
			}
			if cur.Relative == nil {
				cur.Relative = &model.RelativeDate{}
			} else {
				rel := *cur.Relative
				cur.Relative = &rel
			}
			cur.Relative.Days = days
		case "relativeTo":
			if cur.Relative == nil {
				cur.Relative = &model.RelativeDate{}
			} else {
				rel := *cur.Relative
				cur.Relative = &rel
			}
			cur.Relative.RelativeTo = value
		default:
			return t, false
		}
		return cur, true
	case model.TimeBasedTrigger:
		switch field {
		case "frequency":
			cur.Frequency = model.TimeFrequency(value)
		case "time":
			cur.Time = value
		case "weekday":
			cur.Weekday = value
		case "dayOfMonth":
			day, err := strconv.Atoi(value)
			if err != nil {
				return t, false
			}
			cur.DayOfMonth = day
		case "timezone":
			cur.Timezone = value
		default:
			return t, false
		}
		return cur, true
	case model.CapacityBasedTrigger:
		switch field {
		case "teamId":
			cur.TeamID = value
		case "teamName":
			cur.TeamName = value
		case "thresholdType":
			cur.ThresholdType = model.ThresholdType(value)
		case "thresholdPercent":
			pct, err := strconv.Atoi(value)
			if err != nil {
				return t, false
			}
			cur.ThresholdPercent = pct
		default:
			return t, false
		}
		return cur, true
	case model.OrderCompletionPreviousTrigger:
		if field == "lookbackOrders" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return t, false
			}
			cur.LookbackOrders = n
			return cur, true
		}
		return t, false
	default:
		return t, false
	}
}

func setAssignmentField(a model.Assignment, field string, value any) (model.Assignment, bool) {
	switch cur := a.(type) {
	case model.RoleTeamAssignment:
		str := stringValue(value)
		switch field {
		case "mode":
			cur.Mode = model.AssignmentMode(str)
		case "teamId":
			cur.TeamID = str
		case "teamName":
			cur.TeamName = str
		case "roleId":
			cur.RoleID = str
		case "roleName":
			cur.RoleName = str
		default:
			return a, false
		}
		return cur, true
	case model.SpecificPeopleAssignment:
		if field == "userIds" {
			if ids, ok := value.([]string); ok {
				cur.UserIDs = ids
				return cur, true
			}
		}
		return a, false
	default:
		return a, false
	}
}

func setTaskTemplateField(task *model.TaskTemplate, field, value string) error {
	switch field {
	case "title":
		task.Title = value
	case "description":
		task.Description = value
	case "priority":
		task.Priority = model.TaskPriority(strings.ToLower(value))
	case "estimatedHours":
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("estimatedHours %q is not a number", value)
		}
		task.EstimatedHours = hours
	default:
		return fmt.Errorf("unknown task template field %q", field)
	}
	return nil
}

func setDependencyField(dep *model.PlayDependency, field, value string) error {
	switch field {
	case "playId":
		dep.PlayID = value
	case "playTitle":
		dep.PlayTitle = value
	case "type":
		dep.Type = model.DependencyType(value)
	default:
		return fmt.Errorf("unknown dependency field %q", field)
	}
	return nil
}

func setPlayField(play *model.Play, field, value string) error {
	switch field {
	case "title":
		play.Title = value
	case "description":
		play.Description = value
	case "enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("enabled %q is not a boolean", value)
		}
		play.Enabled = enabled
	default:
		return fmt.Errorf("unknown play field %q", field)
	}
	return nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []string:
		return strings.Join(s, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
