package model

// GapType classifies what is missing or unresolved. The set is closed;
// the analyzer is the only producer.
type GapType string

const (
	GapPlaybookUnnamed      GapType = "playbook_unnamed"
	GapMissingWorkflowID    GapType = "missing_workflow_id"
	GapMissingStageID       GapType = "missing_stage_id"
	GapMissingTeamID        GapType = "missing_team_id"
	GapMissingRoleID        GapType = "missing_role_id"
	GapMissingAssignees     GapType = "missing_assignees"
	GapMissingDate          GapType = "missing_date"
	GapMissingTaskReference GapType = "missing_task_reference"
	GapMissingTaskTitle     GapType = "missing_task_title"
	GapShortTaskDescription GapType = "short_task_description"
	GapUnresolvedDependency GapType = "unresolved_dependency"
	GapDefaultedTrigger     GapType = "defaulted_trigger"
)

type GapSeverity string

const (
	GapSeverityCritical GapSeverity = "critical"
	GapSeverityHigh     GapSeverity = "high"
	GapSeverityMedium   GapSeverity = "medium"
	GapSeverityLow      GapSeverity = "low"
)

// Gap is a detected missing or unresolved piece of information. Gaps are
// derived, never stored: the analyzer recomputes them from the current
// playbook state on every pass.
type Gap struct {
	Type       GapType     `json:"type"`
	Severity   GapSeverity `json:"severity"`
	PlayIndex  *int        `json:"playIndex,omitempty"`
	PlayID     string      `json:"playId,omitempty"`
	PlayTitle  string      `json:"playTitle,omitempty"`
	Field      string      `json:"field,omitempty"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Context    string      `json:"context,omitempty"`
}

// Blocking reports whether this gap's severity blocks persistence under the
// default policy.
func (g Gap) Blocking() bool {
	return g.Severity == GapSeverityCritical || g.Severity == GapSeverityHigh
}
