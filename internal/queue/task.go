package queue

type TaskType string

const (
	TaskTypeGeneration TaskType = "playbook_generation"
)
