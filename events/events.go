package events

import (
	"context"
	"sync"
	"time"
)

const (
	TopicTestCompleted   = "oposiciones.tests.completed"
	TopicDisputeResolved = "oposiciones.disputes.resolved"
	TopicArticlesChanged = "oposiciones.articles.changed"
)

type TestCompleted struct {
	TestID         int64     `json:"test_id"`
	UserID         int64     `json:"user_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

type DisputeResolved struct {
	DisputeID  int64  `json:"dispute_id"`
	QuestionID int64  `json:"question_id"`
	UserID     int64  `json:"user_id"`
	Status     string `json:"status"`
	// QuestionDeactivated is true when the admin pulled the question.
	QuestionDeactivated bool `json:"question_deactivated"`
}

type ArticlesChanged struct {
	LawID    int64    `json:"law_id"`
	LawSlug  string   `json:"law_slug"`
	New      []string `json:"new,omitempty"`
	Modified []string `json:"modified,omitempty"`
	Removed  []string `json:"removed,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Published is one event captured by a Recorder.
type Published struct {
	Topic string
	Event any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	r.events = append(r.events, Published{Topic: topic, Event: event})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}
