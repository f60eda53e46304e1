package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"opsdash/internal/events"
	"opsdash/internal/metrics"
)

// WSSource reads JSON events from the backend's WebSocket endpoint and
// reconnects when the connection drops.
type WSSource struct {
	URL string
	// Header, if set, is called before every dial so tokens stay fresh.
	Header  func() (http.Header, error)
	Dialer  *websocket.Dialer
	Limiter *rate.Limiter
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewWSSource(url string, logger *slog.Logger, m *metrics.Metrics) *WSSource {
	return &WSSource{
		URL:     url,
		Dialer:  websocket.DefaultDialer,
		Limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		Logger:  logger,
		Metrics: m,
	}
}

func (s *WSSource) Name() string { return "websocket" }

func (s *WSSource) Run(ctx context.Context, out chan<- events.Event) error {
	// Any session after the first attempt, failed dial or dropped connection,
	// may have missed events.
	for attempt := 0; ; attempt++ {
		if err := s.Limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		err := s.session(ctx, out, attempt > 0)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Logger.Warn("websocket disconnected, reconnecting", "url", s.URL, "err", err)
	}
}

var errSessionEnded = errors.New("websocket closed by peer")

func (s *WSSource) session(ctx context.Context, out chan<- events.Event, reconnect bool) error {
	var header http.Header
	if s.Header != nil {
		h, err := s.Header()
		if err != nil {
			return fmt.Errorf("build dial header: %w", err)
		}
		header = h
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()
	s.Metrics.RecordConnect(s.Name())
	s.Logger.Info("websocket connected", "url", s.URL)

	// Unblock ReadMessage on shutdown.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	if reconnect {
		if err := emit(ctx, out, resync); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errSessionEnded
			}
			return fmt.Errorf("read: %w", err)
		}
		e, err := decodeEvent(data)
		if err != nil {
			s.Logger.Warn("dropping websocket message", "err", err)
			continue
		}
		if err := emit(ctx, out, e); err != nil {
			return err
		}
	}
}
