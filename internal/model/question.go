package model

// QuestionType mirrors the input kind the dashboard renders for a question.
type QuestionType string

const (
	QuestionFreeText QuestionType = "free_text"
	QuestionChoice   QuestionType = "choice"
)

// EnrichmentQuestion is a clarifying question generated from one gap.
// Questions are ephemeral: generated per analysis pass and consumed once
// answers are applied.
type EnrichmentQuestion struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Type      QuestionType `json:"type"`
	PlayIndex *int         `json:"playIndex,omitempty"`
	PlayID    string       `json:"playId,omitempty"`
	PlayTitle string       `json:"playTitle,omitempty"`
	Field     string       `json:"field,omitempty"`
	Options   []string     `json:"options,omitempty"`
	Required  bool         `json:"required"`
	Priority  int          `json:"priority"`
}
