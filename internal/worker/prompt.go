package worker

import (
	"fmt"
	"strings"
)

const generationSystemPrompt = `You are an operations planner for a manufacturing workflow tool.
Given a free-text description of an operating procedure, propose a playbook: a named,
ordered list of plays. Each play fires on a trigger and creates a task for a team, a
role, or specific people.

Respond with a single JSON object:
{
  "name": "playbook name",
  "description": "one-sentence summary",
  "plays": [
    {
      "title": "play title",
      "description": "what this play does",
      "sequence": 1,
      "trigger": {"type": "...", ...},
      "taskTemplate": {"title": "...", "description": "...", "priority": "low|medium|high|urgent", "estimatedHours": 0},
      "assignment": {"type": "role_team|specific_people", "mode": "team|role", "teamName": "...", "roleName": "...", "userIds": []},
      "dependencies": [{"playTitle": "title of another play", "type": "completion|start"}]
    }
  ]
}

Trigger types and their fields:
- order_accepted: no fields
- order_completed: no fields
- workflow_stage_change: workflowName, stageName, condition ("enters", "exits", or "completes")
- task_completion: taskTitle or anyTaskMatching
- date_based: mode ("specific_date" or "relative_to_order"), date (YYYY-MM-DD), days, relativeTo
- time_based: frequency ("daily", "weekly", "monthly"), time (HH:MM), weekday, dayOfMonth, timezone
- capacity_based: teamName, thresholdType, thresholdPercent
- order_completion_previous: lookbackOrders

Use names when you do not know internal ids. Reference dependencies by play title.
Keep sequences contiguous starting at 1.`

func buildGenerationPrompt(instruction, name string) string {
	var b strings.Builder

	if name != "" {
		fmt.Fprintf(&b, "Playbook name: %s\n\n", name)
	}
	b.WriteString("Procedure description:\n")
	b.WriteString(instruction)
	b.WriteString("\n\nPropose the playbook.")

	return b.String()
}
