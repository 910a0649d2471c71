package model

import (
	"encoding/json"
	"fmt"
)

// TriggerType identifies a trigger variant. The set is closed: every
// consumer dispatches with an exhaustive type switch over the concrete
// trigger structs, so adding a variant is a compile-surfaced change.
type TriggerType string

const (
	TriggerOrderAccepted           TriggerType = "order_accepted"
	TriggerOrderCompleted          TriggerType = "order_completed"
	TriggerWorkflowStageChange     TriggerType = "workflow_stage_change"
	TriggerTaskCompletion          TriggerType = "task_completion"
	TriggerDateBased               TriggerType = "date_based"
	TriggerTimeBased               TriggerType = "time_based"
	TriggerCapacityBased           TriggerType = "capacity_based"
	TriggerOrderCompletionPrevious TriggerType = "order_completion_previous"
)

// StageCondition says when a workflow-stage trigger fires relative to the stage.
type StageCondition string

const (
	StageConditionEnters    StageCondition = "enters"
	StageConditionExits     StageCondition = "exits"
	StageConditionCompletes StageCondition = "completes"
)

// DateMode selects between an absolute date and an order-relative offset.
type DateMode string

const (
	DateModeSpecificDate    DateMode = "specific_date"
	DateModeRelativeToOrder DateMode = "relative_to_order"
)

// TimeFrequency is the recurrence of a time-based trigger.
type TimeFrequency string

const (
	FrequencyDaily   TimeFrequency = "daily"
	FrequencyWeekly  TimeFrequency = "weekly"
	FrequencyMonthly TimeFrequency = "monthly"
)

// ThresholdType is the direction of a capacity threshold check.
type ThresholdType string

const (
	ThresholdBelow ThresholdType = "below"
	ThresholdAbove ThresholdType = "above"
)

// Trigger is the closed sum of trigger variants. External directory
// references always carry both a display name and a hard id; an empty id is
// the canonical signal of an unresolved reference.
type Trigger interface {
	TriggerType() TriggerType
	CloneTrigger() Trigger
}

type OrderAcceptedTrigger struct{}

func (OrderAcceptedTrigger) TriggerType() TriggerType { return TriggerOrderAccepted }
func (t OrderAcceptedTrigger) CloneTrigger() Trigger  { return t }

type OrderCompletedTrigger struct{}

func (OrderCompletedTrigger) TriggerType() TriggerType { return TriggerOrderCompleted }
func (t OrderCompletedTrigger) CloneTrigger() Trigger  { return t }

type WorkflowStageChangeTrigger struct {
	WorkflowID   string         `json:"workflowId"`
	WorkflowName string         `json:"workflowName"`
	StageID      string         `json:"stageId"`
	StageName    string         `json:"stageName"`
	Condition    StageCondition `json:"condition"`
}

func (WorkflowStageChangeTrigger) TriggerType() TriggerType { return TriggerWorkflowStageChange }
func (t WorkflowStageChangeTrigger) CloneTrigger() Trigger  { return t }

type TaskCompletionTrigger struct {
	TaskID          string `json:"taskId,omitempty"`
	TaskTitle       string `json:"taskTitle,omitempty"`
	AnyTaskMatching string `json:"anyTaskMatching,omitempty"`
}

func (TaskCompletionTrigger) TriggerType() TriggerType { return TriggerTaskCompletion }
func (t TaskCompletionTrigger) CloneTrigger() Trigger  { return t }

// RelativeDate is an offset from an order milestone, e.g. 3 days after acceptance.
type RelativeDate struct {
	Days       int    `json:"days"`
	RelativeTo string `json:"relativeTo"`
}

type DateBasedTrigger struct {
	Mode     DateMode      `json:"mode"`
	Date     string        `json:"date,omitempty"`
	Relative *RelativeDate `json:"relative,omitempty"`
}

func (DateBasedTrigger) TriggerType() TriggerType { return TriggerDateBased }
func (t DateBasedTrigger) CloneTrigger() Trigger {
	if t.Relative != nil {
		rel := *t.Relative
		t.Relative = &rel
	}
	return t
}

type TimeBasedTrigger struct {
	Frequency  TimeFrequency `json:"frequency"`
	Time       string        `json:"time"`
	Weekday    string        `json:"weekday,omitempty"`
	DayOfMonth int           `json:"dayOfMonth,omitempty"`
	Timezone   string        `json:"timezone"`
}

func (TimeBasedTrigger) TriggerType() TriggerType { return TriggerTimeBased }
func (t TimeBasedTrigger) CloneTrigger() Trigger  { return t }

type CapacityBasedTrigger struct {
	TeamID           string        `json:"teamId"`
	TeamName         string        `json:"teamName"`
	ThresholdType    ThresholdType `json:"thresholdType"`
	ThresholdPercent int           `json:"thresholdPercent"`
}

func (CapacityBasedTrigger) TriggerType() TriggerType { return TriggerCapacityBased }
func (t CapacityBasedTrigger) CloneTrigger() Trigger  { return t }

type OrderCompletionPreviousTrigger struct {
	LookbackOrders int `json:"lookbackOrders"`
}

func (OrderCompletionPreviousTrigger) TriggerType() TriggerType {
	return TriggerOrderCompletionPrevious
}
func (t OrderCompletionPreviousTrigger) CloneTrigger() Trigger { return t }

// TriggerCondition wraps a Trigger variant with an envelope JSON codec:
// the variant's fields are flattened alongside a "type" discriminator, which
// is the wire shape the completion service and the dashboard speak.
type TriggerCondition struct {
	Trigger
}

func NewTriggerCondition(t Trigger) TriggerCondition {
	return TriggerCondition{Trigger: t}
}

func (t TriggerCondition) Clone() TriggerCondition {
	if t.Trigger == nil {
		return TriggerCondition{}
	}
	return TriggerCondition{Trigger: t.Trigger.CloneTrigger()}
}

func (t TriggerCondition) MarshalJSON() ([]byte, error) {
	if t.Trigger == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(t.Trigger)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = t.TriggerType()
	return json.Marshal(fields)
}

func (t *TriggerCondition) UnmarshalJSON(data []byte) error {
	var env struct {
		Type TriggerType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("trigger envelope: %w", err)
	}

	variant, err := emptyTrigger(env.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, variant); err != nil {
		return fmt.Errorf("trigger %s: %w", env.Type, err)
	}
	t.Trigger = deref(variant)
	return nil
}

// emptyTrigger returns a pointer to the zero value of the variant for typ.
func emptyTrigger(typ TriggerType) (Trigger, error) {
	switch typ {
	case TriggerOrderAccepted:
		return &OrderAcceptedTrigger{}, nil
	case TriggerOrderCompleted:
		return &OrderCompletedTrigger{}, nil
	case TriggerWorkflowStageChange:
		return &WorkflowStageChangeTrigger{}, nil
	case TriggerTaskCompletion:
		return &TaskCompletionTrigger{}, nil
	case TriggerDateBased:
		return &DateBasedTrigger{}, nil
	case TriggerTimeBased:
		return &TimeBasedTrigger{}, nil
	case TriggerCapacityBased:
		return &CapacityBasedTrigger{}, nil
	case TriggerOrderCompletionPrevious:
		return &OrderCompletionPreviousTrigger{}, nil
	default:
		return nil, fmt.Errorf("unknown trigger type: %q", typ)
	}
}

// deref converts the pointer produced by emptyTrigger back to the value form
// the rest of the codebase type-switches on.
func deref(t Trigger) Trigger {
	switch v := t.(type) {
	case *OrderAcceptedTrigger:
		return *v
	case *OrderCompletedTrigger:
		return *v
	case *WorkflowStageChangeTrigger:
		return *v
	case *TaskCompletionTrigger:
		return *v
	case *DateBasedTrigger:
		return *v
	case *TimeBasedTrigger:
		return *v
	case *CapacityBasedTrigger:
		return *v
	case *OrderCompletionPreviousTrigger:
		return *v
	default:
		return t
	}
}
