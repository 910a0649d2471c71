package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"stitchflow.app/conductor/common/id"
	"stitchflow.app/conductor/internal/model"
)

// Result is the outcome of transforming one proposal. Issues collects
// per-play diagnostics: a bad play is dropped and reported here, it never
// aborts the rest of the batch.
type Result struct {
	Name        string
	Description string
	Plays       []model.Play
	Issues      []string
}

// ResponseTransformer converts raw completion-service proposals into the
// canonical entity graph.
type ResponseTransformer struct{}

func NewResponseTransformer() *ResponseTransformer {
	return &ResponseTransformer{}
}

// Transform builds canonical plays from the proposal. Dependency titles are
// carried through unresolved during the first pass, then resolved against
// the whole batch by case-insensitive title match. Plays come back sorted by
// sequence with the 1..N invariant restored.
func (t *ResponseTransformer) Transform(proposal Proposal, playbookID, createdBy string) Result {
	result := Result{
		Name:        proposal.Name,
		Description: proposal.Description,
		Plays:       []model.Play{},
		Issues:      []string{},
	}

	for i, raw := range proposal.Plays {
		play, issues, err := t.transformPlay(raw, playbookID, createdBy, i)
		result.Issues = append(result.Issues, issues...)
		if err != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("play %d (%s): %v", i+1, raw.Title, err))
			continue
		}
		result.Plays = append(result.Plays, play)
	}

	ResolveDependencies(result.Plays)

	sort.SliceStable(result.Plays, func(a, b int) bool {
		return result.Plays[a].Sequence < result.Plays[b].Sequence
	})
	Resequence(result.Plays)

	return result
}

// TransformPlay converts a single raw play, resolving its dependencies
// against the given existing plays. Used by the refinement transformer when
// adding a play to an already-persisted playbook.
func (t *ResponseTransformer) TransformPlay(raw RawPlay, playbookID, createdBy string, existing []model.Play) (model.Play, []string, error) {
	play, issues, err := t.transformPlay(raw, playbookID, createdBy, len(existing))
	if err != nil {
		return model.Play{}, issues, err
	}
	titles := titleIndex(existing)
	for i := range play.Dependencies {
		if play.Dependencies[i].PlayID == "" {
			play.Dependencies[i].PlayID = titles[strings.ToLower(play.Dependencies[i].PlayTitle)]
		}
	}
	return play, issues, nil
}

func (t *ResponseTransformer) transformPlay(raw RawPlay, playbookID, createdBy string, idx int) (model.Play, []string, error) {
	if strings.TrimSpace(raw.Title) == "" {
		return model.Play{}, nil, fmt.Errorf("play has no title")
	}

	var issues []string
	now := time.Now().UTC()

	sequence := raw.Sequence
	if sequence <= 0 {
		sequence = idx + 1
	}

	trigger, defaulted := mapTrigger(raw.Trigger)
	if defaulted {
		issues = append(issues, fmt.Sprintf(
			"play %q: unknown trigger type %q, defaulted to order_accepted", raw.Title, raw.Trigger.Type))
	}

	assignment, assignIssue := mapAssignment(raw.Assignment)
	if assignIssue != "" {
		issues = append(issues, fmt.Sprintf("play %q: %s", raw.Title, assignIssue))
	}

	deps := make([]model.PlayDependency, 0, len(raw.Dependencies))
	for _, d := range raw.Dependencies {
		depType := model.DependencyType(d.Type)
		if depType == "" {
			depType = model.DependencyCompletion
		}
		deps = append(deps, model.PlayDependency{
			PlayTitle: d.PlayTitle,
			Type:      depType,
		})
	}

	return model.Play{
		ID:               id.NewString(),
		PlaybookID:       playbookID,
		Sequence:         sequence,
		Title:            raw.Title,
		Description:      raw.Description,
		Trigger:          model.NewTriggerCondition(trigger),
		TaskTemplate:     mapTaskTemplate(raw),
		Assignment:       model.NewPlayAssignment(assignment),
		Dependencies:     deps,
		Enabled:          true,
		TriggerDefaulted: defaulted,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        createdBy,
	}, issues, nil
}

// mapTrigger maps the raw type string onto the matching variant. Unknown
// types never fail: they default to order_accepted and the caller records
// the substitution, which the analyzer later surfaces as a gap.
func mapTrigger(raw RawTrigger) (model.Trigger, bool) {
	switch model.TriggerType(raw.Type) {
	case model.TriggerOrderAccepted:
		return model.OrderAcceptedTrigger{}, false
	case model.TriggerOrderCompleted:
		return model.OrderCompletedTrigger{}, false
	case model.TriggerWorkflowStageChange:
		condition := model.StageCondition(raw.Condition)
		if condition == "" {
			condition = model.StageConditionEnters
		}
		return model.WorkflowStageChangeTrigger{
			WorkflowID:   raw.WorkflowID,
			WorkflowName: raw.WorkflowName,
			StageID:      raw.StageID,
			StageName:    raw.StageName,
			Condition:    condition,
		}, false
	case model.TriggerTaskCompletion:
		return model.TaskCompletionTrigger{
			TaskID:          raw.TaskID,
			TaskTitle:       raw.TaskTitle,
			AnyTaskMatching: raw.AnyTaskMatching,
		}, false
	case model.TriggerDateBased:
		trigger := model.DateBasedTrigger{
			Mode: mapDateMode(raw.Mode),
			Date: raw.Date,
		}
		if trigger.Mode == model.DateModeRelativeToOrder {
			trigger.Relative = &model.RelativeDate{Days: raw.Days, RelativeTo: raw.RelativeTo}
		}
		return trigger, false
	case model.TriggerTimeBased:
		timezone := raw.Timezone
		if timezone == "" {
			timezone = "UTC"
		}
		return model.TimeBasedTrigger{
			Frequency:  model.TimeFrequency(raw.Frequency),
			Time:       raw.Time,
			Weekday:    raw.Weekday,
			DayOfMonth: raw.DayOfMonth,
			Timezone:   timezone,
		}, false
	case model.TriggerCapacityBased:
		return model.CapacityBasedTrigger{
			TeamID:           raw.TeamID,
			TeamName:         raw.TeamName,
			ThresholdType:    model.ThresholdType(raw.ThresholdType),
			ThresholdPercent: raw.ThresholdPercent,
		}, false
	case model.TriggerOrderCompletionPrevious:
		return model.OrderCompletionPreviousTrigger{
			LookbackOrders: raw.LookbackOrders,
		}, false
	default:
		return model.OrderAcceptedTrigger{}, true
	}
}

// mapDateMode normalizes the raw mode string. "relative" is a common model
// shorthand for relative_to_order; any other unrecognized mode falls back to
// specific_date, where a missing date is a gap the analyzer reports.
func mapDateMode(raw string) model.DateMode {
	switch mode := model.DateMode(raw); mode {
	case model.DateModeSpecificDate, model.DateModeRelativeToOrder:
		return mode
	case "relative":
		return model.DateModeRelativeToOrder
	default:
		return model.DateModeSpecificDate
	}
}

func mapAssignment(raw RawAssignment) (model.Assignment, string) {
	switch model.AssignmentType(raw.Type) {
	case model.AssignmentSpecificPeople:
		userIDs := raw.UserIDs
		if userIDs == nil {
			userIDs = []string{}
		}
		return model.SpecificPeopleAssignment{UserIDs: userIDs}, ""
	case model.AssignmentRoleTeam:
		return roleTeamFromRaw(raw), ""
	default:
		issue := ""
		if raw.Type != "" {
			issue = fmt.Sprintf("unknown assignment type %q, treating as role_team", raw.Type)
		}
		return roleTeamFromRaw(raw), issue
	}
}

func roleTeamFromRaw(raw RawAssignment) model.RoleTeamAssignment {
	mode := model.AssignmentMode(raw.Mode)
	if mode == "" {
		if raw.RoleID != "" || raw.RoleName != "" {
			mode = model.AssignmentModeRole
		} else {
			mode = model.AssignmentModeTeam
		}
	}
	return model.RoleTeamAssignment{
		Mode:     mode,
		TeamID:   raw.TeamID,
		TeamName: raw.TeamName,
		RoleID:   raw.RoleID,
		RoleName: raw.RoleName,
	}
}

func mapTaskTemplate(raw RawPlay) model.TaskTemplate {
	task := model.TaskTemplate{Priority: model.TaskPriorityMedium}
	if raw.TaskTemplate != nil {
		task.Title = raw.TaskTemplate.Title
		task.Description = raw.TaskTemplate.Description
		task.EstimatedHours = raw.TaskTemplate.EstimatedHours
		if raw.TaskTemplate.Priority != "" {
			task.Priority = model.TaskPriority(strings.ToLower(raw.TaskTemplate.Priority))
		}
	}
	if task.Title == "" {
		task.Title = raw.Title
	}
	return task
}

// ResolveDependencies fills in dependency play ids across the given plays by
// case-insensitive exact title match. Unmatched dependencies keep an empty
// id for the analyzer to flag.
func ResolveDependencies(plays []model.Play) {
	titles := titleIndex(plays)
	for p := range plays {
		for d := range plays[p].Dependencies {
			dep := &plays[p].Dependencies[d]
			if dep.PlayID == "" {
				dep.PlayID = titles[strings.ToLower(dep.PlayTitle)]
			}
		}
	}
}

// Resequence rewrites Sequence to 1..N in current array order.
func Resequence(plays []model.Play) {
	for i := range plays {
		plays[i].Sequence = i + 1
	}
}

func titleIndex(plays []model.Play) map[string]string {
	titles := make(map[string]string, len(plays))
	for i := range plays {
		titles[strings.ToLower(plays[i].Title)] = plays[i].ID
	}
	return titles
}
