package transform

// Raw proposal shapes as the completion service emits them: flat records,
// name-keyed references, no hard ids. The transformer turns these into the
// canonical entity graph.

// Proposal is the play list proposed by the completion service for one
// free-text instruction.
type Proposal struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Plays       []RawPlay `json:"plays"`
}

type RawPlay struct {
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Sequence     int             `json:"sequence,omitempty"`
	Trigger      RawTrigger      `json:"trigger"`
	TaskTemplate *RawTask        `json:"taskTemplate,omitempty"`
	Assignment   RawAssignment   `json:"assignment"`
	Dependencies []RawDependency `json:"dependencies,omitempty"`
}

// RawTrigger is the flat superset of every trigger variant's fields. Which
// fields matter is decided by Type.
type RawTrigger struct {
	Type             string `json:"type"`
	WorkflowID       string `json:"workflowId,omitempty"`
	WorkflowName     string `json:"workflowName,omitempty"`
	StageID          string `json:"stageId,omitempty"`
	StageName        string `json:"stageName,omitempty"`
	Condition        string `json:"condition,omitempty"`
	TaskID           string `json:"taskId,omitempty"`
	TaskTitle        string `json:"taskTitle,omitempty"`
	AnyTaskMatching  string `json:"anyTaskMatching,omitempty"`
	Mode             string `json:"mode,omitempty"`
	Date             string `json:"date,omitempty"`
	Days             int    `json:"days,omitempty"`
	RelativeTo       string `json:"relativeTo,omitempty"`
	Frequency        string `json:"frequency,omitempty"`
	Time             string `json:"time,omitempty"`
	Weekday          string `json:"weekday,omitempty"`
	DayOfMonth       int    `json:"dayOfMonth,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	TeamID           string `json:"teamId,omitempty"`
	TeamName         string `json:"teamName,omitempty"`
	ThresholdType    string `json:"thresholdType,omitempty"`
	ThresholdPercent int    `json:"thresholdPercent,omitempty"`
	LookbackOrders   int    `json:"lookbackOrders,omitempty"`
}

type RawTask struct {
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	EstimatedHours float64 `json:"estimatedHours,omitempty"`
}

type RawAssignment struct {
	Type     string   `json:"type"`
	Mode     string   `json:"mode,omitempty"`
	TeamID   string   `json:"teamId,omitempty"`
	TeamName string   `json:"teamName,omitempty"`
	RoleID   string   `json:"roleId,omitempty"`
	RoleName string   `json:"roleName,omitempty"`
	UserIDs  []string `json:"userIds,omitempty"`
}

type RawDependency struct {
	PlayTitle string `json:"playTitle"`
	Type      string `json:"type,omitempty"`
}
