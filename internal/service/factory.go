package service

import (
	"time"

	"stitchflow.app/conductor/internal/enrich"
	"stitchflow.app/conductor/internal/queue"
	"stitchflow.app/conductor/internal/store"
	"stitchflow.app/conductor/internal/transform"
)

type Services struct {
	stores      *store.Stores
	producer    queue.Producer
	questions   *enrich.QuestionGenerator
	questionTTL time.Duration
}

func NewServices(stores *store.Stores, producer queue.Producer, questions *enrich.QuestionGenerator, questionTTL time.Duration) *Services {
	return &Services{
		stores:      stores,
		producer:    producer,
		questions:   questions,
		questionTTL: questionTTL,
	}
}

func (s *Services) Playbooks() PlaybookService {
	return NewPlaybookService(
		s.stores.Playbooks(),
		s.producer,
		s.questions,
		transform.NewRefinementTransformer(transform.NewResponseTransformer()),
		s.questionTTL,
	)
}
