package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// session drives one Step over one websocket connection. Only run touches
// the step and writes to the connection.
type session struct {
	conn       *websocket.Conn
	remoteAddr string
	step       *environment.Step
	metrics    *Metrics
	logger     *zap.Logger

	completed *environment.Snapshot
}

type inbound struct {
	msg ClientMessage
	err error
}

func newSession(conn *websocket.Conn, opts environment.Options, metrics *Metrics) (*session, error) {
	s := &session{
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		metrics:    metrics,
	}
	s.logger = logging.Named("session").With(zap.String("remote_addr", s.remoteAddr))

	opts.Logger = s.logger
	opts.OnComplete = func(snap environment.Snapshot) {
		s.completed = &snap
	}
	step, err := environment.NewStep(opts)
	if err != nil {
		return nil, err
	}
	s.step = step
	return s, nil
}

// run processes client messages and read results until the connection closes
// or ctx is done.
func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.step.Close()
		_ = s.conn.Close()
		logging.LogSession(s.remoteAddr, "session_closed")
	}()
	logging.LogSession(s.remoteAddr, "session_opened")

	incoming := make(chan inbound)
	go s.readLoop(ctx, incoming)

	results := make(chan environment.Event)
	s.start(ctx, s.step.Init(), results)

	if err := s.write(newStateMessage(s.step)); err != nil {
		return err
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case in, ok := <-incoming:
			if !ok {
				return nil
			}
			if in.err != nil {
				if err := s.write(newErrorMessage(in.err)); err != nil {
					return err
				}
				continue
			}
			if err := s.handleMessage(ctx, in.msg, results); err != nil {
				return err
			}

		case ev := <-results:
			if err := s.apply(ctx, ev, results); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// readLoop decodes client messages until the connection fails.
func (s *session) readLoop(ctx context.Context, incoming chan<- inbound) {
	defer close(incoming)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		err := s.conn.ReadJSON(&msg)
		if err != nil && !isDecodeError(err) {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				logging.Debug("Connection closed by client",
					zap.String("remote_addr", s.remoteAddr),
					zap.Int("code", closeErr.Code),
				)
			} else if ctx.Err() == nil {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", s.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case incoming <- inbound{msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) handleMessage(ctx context.Context, msg ClientMessage, results chan environment.Event) error {
	ev, err := msg.ToEvent()
	if err != nil {
		s.logger.Warn("Rejected client message", zap.String("type", msg.Type), zap.Error(err))
		return s.write(newErrorMessage(err))
	}
	s.metrics.recordEvent(msg.Type)
	return s.apply(ctx, ev, results)
}

// apply feeds ev to the step, starts the returned command and reports the
// resulting state.
func (s *session) apply(ctx context.Context, ev environment.Event, results chan environment.Event) error {
	before := s.step.Phase()
	cmd := s.step.Update(ev)
	s.start(ctx, cmd, results)
	s.recordOutcome(ev, before)

	if err := s.write(newStateMessage(s.step)); err != nil {
		return err
	}
	if s.completed != nil {
		snap := *s.completed
		s.completed = nil
		s.metrics.recordComplete(snap.SourceType)
		return s.write(newCompleteMessage(snap))
	}
	return nil
}

func (s *session) recordOutcome(ev environment.Event, before environment.Phase) {
	switch ev.(type) {
	case environment.AdvanceRequested:
		if before != environment.PhaseEditing {
			return
		}
	case environment.ImageScanned:
		if before != environment.PhaseValidating || s.step.Phase() == environment.PhaseValidating {
			return
		}
	default:
		return
	}

	switch s.step.Phase() {
	case environment.PhaseReady:
		s.metrics.recordAdvance(environment.OutcomeReady)
	case environment.PhaseValidating:
		s.metrics.recordAdvance(environment.OutcomeScanning)
	default:
		s.metrics.recordAdvance(s.step.State().ErrorKind().String())
	}
}

// start runs cmd in its own goroutine and delivers its event to results.
func (s *session) start(ctx context.Context, cmd environment.Cmd, results chan<- environment.Event) {
	if cmd == nil {
		return
	}
	go func() {
		ev := cmd(ctx)
		select {
		case results <- ev:
		case <-ctx.Done():
		}
	}()
}

func (s *session) write(msg ServerMessage) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		logging.Error("Failed to send message",
			zap.String("remote_addr", s.remoteAddr),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// isDecodeError reports whether err is a bad payload rather than a broken
// connection. The connection stays usable after such an error.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
