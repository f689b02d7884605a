package extensions

import (
	"github.com/rs/zerolog"

	compose "github.com/pumped-fn/pumped-compose"
)

// LoggingMonitor logs lifecycle transitions, sends and cleanup failures
type LoggingMonitor struct {
	compose.BaseMonitor
	logger zerolog.Logger
	emits  bool
}

// LoggingOption is a modifier for LoggingMonitor
type LoggingOption func(*LoggingMonitor)

// WithEmits returns an option that also logs every send at trace level
func WithEmits() LoggingOption {
	return func(m *LoggingMonitor) {
		m.emits = true
	}
}

// NewLoggingMonitor creates a new logging monitor writing to logger
func NewLoggingMonitor(logger zerolog.Logger, opts ...LoggingOption) *LoggingMonitor {
	m := &LoggingMonitor{
		BaseMonitor: compose.NewBaseMonitor("logging"),
		logger:      logger.With().Str("monitor", "logging").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *LoggingMonitor) OnLifecycle(ev compose.LifecycleEvent) {
	var e *zerolog.Event
	switch ev.Kind {
	case compose.LifecycleCreated, compose.LifecycleDestroyed, compose.LifecycleClosed:
		e = m.logger.Info()
	default:
		e = m.logger.Debug()
	}

	e = e.Str("event", string(ev.Kind)).
		Str("mode", string(ev.Mode)).
		Str("container", ev.ContainerName).
		Stringer("container_id", ev.Container)

	switch ev.Kind {
	case compose.LifecycleCreated, compose.LifecycleDestroyed, compose.LifecycleDisposed:
		e = e.Stringer("component", ev.Component).Int("subscriptions", ev.Subscriptions)
	case compose.LifecycleVisible, compose.LifecycleHidden:
		e = e.Bool("visible", ev.Visible)
	case compose.LifecycleAdopted:
		e = e.Stringer("component", ev.Component).Stringer("offered", ev.Previous)
	case compose.LifecycleOpened:
		var zero compose.ID
		if ev.Parent != zero {
			e = e.Stringer("parent", ev.Parent)
		}
	}

	e.Msg("component lifecycle")
}

func (m *LoggingMonitor) OnEmit(ev compose.EmitEvent) {
	if !m.emits {
		return
	}
	if ev.Closed {
		m.logger.Trace().
			Stringer("emitter", ev.Emitter).
			Str("kind", string(ev.Kind)).
			Msg("emitter closed")
		return
	}
	m.logger.Trace().
		Stringer("emitter", ev.Emitter).
		Str("kind", string(ev.Kind)).
		Int("observers", ev.Observers).
		Dur("duration", ev.Duration).
		Msg("send")
}

func (m *LoggingMonitor) OnCleanupError(err *compose.CleanupError) bool {
	m.logger.Error().
		Err(err.Err).
		Stringer("owner", err.Owner).
		Stringer("subscription", err.Subscription).
		Str("context", err.Context).
		Msg("cleanup failed")
	return true
}
