package model

import (
	"encoding/json"
	"fmt"
)

// AssignmentType identifies an assignment variant.
type AssignmentType string

const (
	AssignmentRoleTeam       AssignmentType = "role_team"
	AssignmentSpecificPeople AssignmentType = "specific_people"
)

// AssignmentMode selects between team-level and role-level targeting for
// role_team assignments.
type AssignmentMode string

const (
	AssignmentModeTeam AssignmentMode = "team"
	AssignmentModeRole AssignmentMode = "role"
)

// Assignment is the closed sum of assignment variants.
type Assignment interface {
	AssignmentType() AssignmentType
	CloneAssignment() Assignment
}

type RoleTeamAssignment struct {
	Mode     AssignmentMode `json:"mode"`
	TeamID   string         `json:"teamId,omitempty"`
	TeamName string         `json:"teamName,omitempty"`
	RoleID   string         `json:"roleId,omitempty"`
	RoleName string         `json:"roleName,omitempty"`
}

func (RoleTeamAssignment) AssignmentType() AssignmentType { return AssignmentRoleTeam }
func (a RoleTeamAssignment) CloneAssignment() Assignment  { return a }

type SpecificPeopleAssignment struct {
	UserIDs []string `json:"userIds"`
}

func (SpecificPeopleAssignment) AssignmentType() AssignmentType { return AssignmentSpecificPeople }
func (a SpecificPeopleAssignment) CloneAssignment() Assignment {
	a.UserIDs = append([]string(nil), a.UserIDs...)
	return a
}

// PlayAssignment wraps an Assignment variant with the same envelope codec
// shape as TriggerCondition: variant fields flattened next to "type".
type PlayAssignment struct {
	Assignment
}

func NewPlayAssignment(a Assignment) PlayAssignment {
	return PlayAssignment{Assignment: a}
}

func (a PlayAssignment) Clone() PlayAssignment {
	if a.Assignment == nil {
		return PlayAssignment{}
	}
	return PlayAssignment{Assignment: a.Assignment.CloneAssignment()}
}

func (a PlayAssignment) MarshalJSON() ([]byte, error) {
	if a.Assignment == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(a.Assignment)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = a.AssignmentType()
	return json.Marshal(fields)
}

func (a *PlayAssignment) UnmarshalJSON(data []byte) error {
	var env struct {
		Type AssignmentType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("assignment envelope: %w", err)
	}

	switch env.Type {
	case AssignmentRoleTeam:
		var v RoleTeamAssignment
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("assignment %s: %w", env.Type, err)
		}
		a.Assignment = v
	case AssignmentSpecificPeople:
		var v SpecificPeopleAssignment
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("assignment %s: %w", env.Type, err)
		}
		a.Assignment = v
	default:
		return fmt.Errorf("unknown assignment type: %q", env.Type)
	}
	return nil
}
