package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"opsdash/internal/events"
	"opsdash/internal/metrics"
)

// NotifySource listens on a Postgres NOTIFY channel; each payload is one
// JSON event, e.g. NOTIFY dashboard_events, '{"type":"incident_created"}'.
type NotifySource struct {
	DSN     string
	Channel string
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// newListener is swapped in tests.
	newListener func(dsn string, cb pq.EventCallbackType) listener
}

type listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

func NewNotifySource(dsn, channel string, logger *slog.Logger, m *metrics.Metrics) *NotifySource {
	return &NotifySource{
		DSN:     dsn,
		Channel: channel,
		Logger:  logger,
		Metrics: m,
	}
}

func (s *NotifySource) Name() string { return "pg-notify" }

func (s *NotifySource) Run(ctx context.Context, out chan<- events.Event) error {
	cb := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected, pq.ListenerEventReconnected:
			s.Metrics.RecordConnect(s.Name())
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			s.Logger.Warn("pg listener connection problem", "channel", s.Channel, "err", err)
		}
	}
	newListener := s.newListener
	if newListener == nil {
		newListener = func(dsn string, cb pq.EventCallbackType) listener {
			return pq.NewListener(dsn, time.Second, time.Minute, cb)
		}
	}
	l := newListener(s.DSN, cb)
	defer l.Close()
	if err := l.Listen(s.Channel); err != nil {
		return fmt.Errorf("listen %s: %w", s.Channel, err)
	}
	s.Logger.Info("listening for postgres notifications", "channel", s.Channel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-l.NotificationChannel():
			// nil means the listener reconnected and may have missed notifications.
			if n == nil {
				if err := emit(ctx, out, resync); err != nil {
					return err
				}
				continue
			}
			e, err := decodeEvent([]byte(n.Extra))
			if err != nil {
				s.Logger.Warn("dropping notification", "channel", n.Channel, "err", err)
				continue
			}
			if err := emit(ctx, out, e); err != nil {
				return err
			}
		case <-ping.C:
			go func() {
				if err := l.Ping(); err != nil {
					s.Logger.Debug("pg listener ping failed", "err", err)
				}
			}()
		}
	}
}
