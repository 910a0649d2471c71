package gap

import (
	"fmt"
	"strings"

	"stitchflow.app/conductor/internal/model"
)

// shortDescriptionLen is the threshold below which a task description is
// flagged as too thin to be useful. Informational only, never blocks.
const shortDescriptionLen = 20

// Analyze scans a playbook and returns every detected gap in deterministic
// order: playbook-level first, then plays in array order, and within a play
// trigger, assignment, task template, dependencies. It is pure: calling it
// twice on the same playbook yields an identical list.
func Analyze(pb *model.Playbook) []model.Gap {
	gaps := []model.Gap{}

	if strings.TrimSpace(pb.Name) == "" {
		gaps = append(gaps, model.Gap{
			Type:       model.GapPlaybookUnnamed,
			Severity:   model.GapSeverityLow,
			Message:    "playbook has no name",
			Suggestion: "What should this playbook be called?",
		})
	}

	for i := range pb.Plays {
		gaps = append(gaps, analyzePlay(pb, i)...)
	}

	return gaps
}

func analyzePlay(pb *model.Playbook, idx int) []model.Gap {
	play := &pb.Plays[idx]
	var gaps []model.Gap

	add := func(g model.Gap) {
		i := idx
		g.PlayIndex = &i
		g.PlayID = play.ID
		g.PlayTitle = play.Title
		gaps = append(gaps, g)
	}

	for _, g := range analyzeTrigger(play) {
		add(g)
	}
	for _, g := range analyzeAssignment(play) {
		add(g)
	}
	for _, g := range analyzeTaskTemplate(play) {
		add(g)
	}
	for _, g := range analyzeDependencies(pb, play) {
		add(g)
	}

	return gaps
}

func analyzeTrigger(play *model.Play) []model.Gap {
	var gaps []model.Gap

	switch t := play.Trigger.Trigger.(type) {
	case model.WorkflowStageChangeTrigger:
		if t.WorkflowID == "" {
			gaps = append(gaps, model.Gap{
				Type:       model.GapMissingWorkflowID,
				Severity:   model.GapSeverityCritical,
				Field:      "trigger.workflowId",
				Message:    fmt.Sprintf("workflow %q is not linked to a workflow id", t.WorkflowName),
				Suggestion: fmt.Sprintf("Which workflow does %q refer to?", t.WorkflowName),
			})
		}
		if t.StageID == "" {
			gaps = append(gaps, model.Gap{
				Type:       model.GapMissingStageID,
				Severity:   model.GapSeverityCritical,
				Field:      "trigger.stageId",
				Message:    fmt.Sprintf("stage %q is not linked to a stage id", t.StageName),
				Suggestion: fmt.Sprintf("Which stage does %q refer to?", t.StageName),
			})
		}
	case model.CapacityBasedTrigger:
		if t.TeamID == "" {
			gaps = append(gaps, model.Gap{
				Type:       model.GapMissingTeamID,
				Severity:   model.GapSeverityCritical,
				Field:      "trigger.teamId",
				Message:    fmt.Sprintf("team %q is not linked to a team id", t.TeamName),
				Suggestion: fmt.Sprintf("Which team does %q refer to?", t.TeamName),
			})
		}
	case model.DateBasedTrigger:
		if t.Mode == model.DateModeSpecificDate && t.Date == "" {
			gaps = append(gaps, model.Gap{
				Type:       model.GapMissingDate,
				Severity:   model.GapSeverityHigh,
				Field:      "trigger.date",
				Message:    "date-based trigger has no date set",
				Suggestion: "What date should this play fire on?",
			})
		}
	case model.TaskCompletionTrigger:
		if t.TaskID == "" && t.TaskTitle == "" && t.AnyTaskMatching == "" {
			gaps = append(gaps, model.Gap{
				Type:       model.GapMissingTaskReference,
				Severity:   model.GapSeverityHigh,
				Field:      "trigger.taskTitle",
				Message:    "task-completion trigger does not say which task to watch",
				Suggestion: "Which task's completion should trigger this play?",
			})
		}
	case model.OrderAcceptedTrigger, model.OrderCompletedTrigger,
		model.TimeBasedTrigger, model.OrderCompletionPreviousTrigger:
		// Nothing to resolve.
	}

	if play.TriggerDefaulted {
		gaps = append(gaps, model.Gap{
			Type:     model.GapDefaultedTrigger,
			Severity: model.GapSeverityMedium,
			Field:    "trigger.type",
			Message:  "trigger type was not recognized and defaulted to order_accepted",
			Suggestion: "When should this play actually fire? The proposed " +
				"trigger was not one of the supported kinds.",
		})
	}

	return gaps
}

func analyzeAssignment(play *model.Play) []model.Gap {
	switch a := play.Assignment.Assignment.(type) {
	case model.RoleTeamAssignment:
		if a.Mode == model.AssignmentModeTeam && a.TeamID == "" {
			return []model.Gap{{
				Type:       model.GapMissingTeamID,
				Severity:   model.GapSeverityCritical,
				Field:      "assignment.teamId",
				Message:    fmt.Sprintf("assigned team %q is not linked to a team id", a.TeamName),
				Suggestion: fmt.Sprintf("Which team should %q be assigned to?", play.Title),
			}}
		}
		if a.Mode == model.AssignmentModeRole && a.RoleID == "" {
			return []model.Gap{{
				Type:       model.GapMissingRoleID,
				Severity:   model.GapSeverityCritical,
				Field:      "assignment.roleId",
				Message:    fmt.Sprintf("assigned role %q is not linked to a role id", a.RoleName),
				Suggestion: fmt.Sprintf("Which role should %q be assigned to?", play.Title),
			}}
		}
	case model.SpecificPeopleAssignment:
		if len(a.UserIDs) == 0 {
			return []model.Gap{{
				Type:       model.GapMissingAssignees,
				Severity:   model.GapSeverityHigh,
				Field:      "assignment.userIds",
				Message:    "assignment names specific people but no users are linked",
				Suggestion: fmt.Sprintf("Who exactly should %q be assigned to?", play.Title),
			}}
		}
	}
	return nil
}

func analyzeTaskTemplate(play *model.Play) []model.Gap {
	var gaps []model.Gap
	if strings.TrimSpace(play.TaskTemplate.Title) == "" {
		gaps = append(gaps, model.Gap{
			Type:       model.GapMissingTaskTitle,
			Severity:   model.GapSeverityCritical,
			Field:      "taskTemplate.title",
			Message:    "task template has no title",
			Suggestion: fmt.Sprintf("What should the task created by %q be called?", play.Title),
		})
	}
	if len(play.TaskTemplate.Description) < shortDescriptionLen {
		gaps = append(gaps, model.Gap{
			Type:     model.GapShortTaskDescription,
			Severity: model.GapSeverityLow,
			Field:    "taskTemplate.description",
			Message:  "task description is very short; assignees may lack context",
		})
	}
	return gaps
}

func analyzeDependencies(pb *model.Playbook, play *model.Play) []model.Gap {
	var gaps []model.Gap
	for i, dep := range play.Dependencies {
		if dep.PlayID != "" {
			continue
		}
		field := fmt.Sprintf("dependencies[%d].playId", i)
		if titleExists(pb, dep.PlayTitle) {
			// Target exists; the link just was not resolved. Mechanical fix.
			gaps = append(gaps, model.Gap{
				Type:       model.GapUnresolvedDependency,
				Severity:   model.GapSeverityMedium,
				Field:      field,
				Message:    fmt.Sprintf("dependency on %q is not linked yet", dep.PlayTitle),
				Suggestion: fmt.Sprintf("Link this dependency to the play titled %q.", dep.PlayTitle),
			})
		} else {
			gaps = append(gaps, model.Gap{
				Type:       model.GapUnresolvedDependency,
				Severity:   model.GapSeverityHigh,
				Field:      field,
				Message:    fmt.Sprintf("dependency target %q does not exist in this playbook", dep.PlayTitle),
				Suggestion: fmt.Sprintf("Which play should %q wait for? No play is titled %q.", play.Title, dep.PlayTitle),
			})
		}
	}
	return gaps
}

func titleExists(pb *model.Playbook, title string) bool {
	for i := range pb.Plays {
		if strings.EqualFold(pb.Plays[i].Title, title) {
			return true
		}
	}
	return false
}

// GroupBySeverity partitions gaps into the four severity buckets without
// mutating the input list.
func GroupBySeverity(gaps []model.Gap) map[model.GapSeverity][]model.Gap {
	grouped := map[model.GapSeverity][]model.Gap{
		model.GapSeverityCritical: {},
		model.GapSeverityHigh:     {},
		model.GapSeverityMedium:   {},
		model.GapSeverityLow:      {},
	}
	for _, g := range gaps {
		grouped[g.Severity] = append(grouped[g.Severity], g)
	}
	return grouped
}
