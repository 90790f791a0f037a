package upgrade

import (
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events while a run progresses.
type Observer interface {
	// Event emits a structured event.
	Event(event Event)

	// Progress reports that node current of total in phase is starting.
	Progress(phase Phase, current, total int)
}

// Event is one structured upgrade event.
type Event struct {
	Type     EventType
	Phase    Phase
	Node     string
	Host     string
	Role     string
	Step     Step
	Message  string
	Duration time.Duration
	Err      error
}

// EventType is the kind of an upgrade event.
type EventType string

const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"

	EventStepCompleted        EventType = "step.completed"
	EventStepFailed           EventType = "step.failed"
	EventStepBestEffortFailed EventType = "step.best_effort_failed"
)

// LogObserver writes events to a logr.Logger.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an Observer that logs every event.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(e Event) {
	kv := []any{"event", string(e.Type)}
	if e.Phase != "" {
		kv = append(kv, "phase", string(e.Phase))
	}
	if e.Node != "" {
		kv = append(kv, "node", e.Node)
	}
	if e.Host != "" && e.Host != e.Node {
		kv = append(kv, "host", e.Host)
	}
	if e.Role != "" {
		kv = append(kv, "role", e.Role)
	}
	if e.Step != "" {
		kv = append(kv, "step", string(e.Step))
	}
	if e.Duration > 0 {
		kv = append(kv, "duration", e.Duration.Round(time.Millisecond).String())
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}

	switch e.Type {
	case EventPhaseFailed, EventNodeFailed, EventStepFailed:
		o.log.Error(e.Err, msg, kv...)
	case EventStepCompleted:
		o.log.V(1).Info(msg, kv...)
	case EventStepBestEffortFailed:
		if e.Err != nil {
			kv = append(kv, "error", e.Err.Error())
		}
		o.log.Info(msg, kv...)
	default:
		o.log.Info(msg, kv...)
	}
}

// Progress implements Observer.
func (o *LogObserver) Progress(phase Phase, current, total int) {
	o.log.Info("progress", "phase", string(phase), "node", current, "of", total)
}

// multiObserver fans events out to several observers.
type multiObserver []Observer

// Observers combines observers into one. Nil observers are dropped.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) Event(e Event) {
	for _, o := range m {
		o.Event(e)
	}
}

func (m multiObserver) Progress(phase Phase, current, total int) {
	for _, o := range m {
		o.Progress(phase, current, total)
	}
}
