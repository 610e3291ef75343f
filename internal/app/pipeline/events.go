package pipeline

import (
	"log/slog"
	"time"

	"skitgen/internal/app/failure"
)

type EventType string

const (
	EventStageStarted  EventType = "stage_started"
	EventItemDone      EventType = "item_done"
	EventStageFinished EventType = "stage_finished"
	EventRunFailed     EventType = "run_failed"
	EventRunFinished   EventType = "run_finished"
)

type Event struct {
	RunID string        `json:"run_id"`
	Type  EventType     `json:"type"`
	Stage failure.Stage `json:"stage,omitempty"`
	Item  string        `json:"item,omitempty"`
	Index int           `json:"index,omitempty"`
	Total int           `json:"total,omitempty"`
	Error string        `json:"error,omitempty"`
	Time  time.Time     `json:"time"`
}

// Observer receives progress events. Item events may arrive from several
// goroutines at once.
type Observer interface {
	Observe(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// LogObserver writes every event to the logger.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(e Event) {
		attrs := []any{"run", e.RunID, "stage", e.Stage}
		if e.Item != "" {
			attrs = append(attrs, "item", e.Item, "index", e.Index, "total", e.Total)
		}

		switch e.Type {
		case EventRunFailed:
			logger.Error(string(e.Type), append(attrs, "err", e.Error)...)
		case EventItemDone:
			logger.Debug(string(e.Type), attrs...)
		default:
			logger.Info(string(e.Type), attrs...)
		}
	})
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
