package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	ws "github.com/grahaedukasi/graha-cbt/internal/websocket"
)

const (
	// per-connection message budget
	wsMessagesPerSecond = 20
	wsMessageBurst      = 40
	wsSendBuffer        = 16
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running exam session to the student's browser.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exam/stream?token=
// Pushes state, the low-time warning and the final result; accepts the
// same actions as the REST exam endpoints. The session must already be
// started with POST /student/exam/start.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	studentID := claims.Subject

	live, err := h.sessionService.Get(studentID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsLog := h.log.With().Str("student_id", studentID).Logger()
	wsLog.Info().Msg("Student connected")

	send := make(chan ws.Response, wsSendBuffer)
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})

	go h.writePump(conn, live, send, readerDone, writerDone, wsLog)
	h.readPump(conn, studentID, send, writerDone, wsLog)
	close(readerDone)
}

// readPump dispatches client actions until the connection drops or the
// writer gives up.
func (h *WSHandler) readPump(conn *websocket.Conn, studentID string, send chan<- ws.Response, writerDone <-chan struct{}, log zerolog.Logger) {
	ws.PrepareRead(conn)
	limiter := rate.NewLimiter(wsMessagesPerSecond, wsMessageBurst)

	if st, err := h.sessionService.State(studentID); err == nil {
		enqueue(send, writerDone, ws.Response{Event: ws.EventState, Data: st})
	}

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		if !limiter.Allow() {
			enqueue(send, writerDone, errorResponse(response.ErrRateLimitExceeded, response.GetMessage(response.ErrRateLimitExceeded)))
			continue
		}

		res, ok := h.dispatch(studentID, &msg, log)
		if !ok {
			continue
		}
		if !enqueue(send, writerDone, res) {
			return
		}
	}
}

// dispatch runs one action and builds its reply. ok is false when the
// action produces no direct reply.
func (h *WSHandler) dispatch(studentID string, msg *ws.Request, log zerolog.Logger) (ws.Response, bool) {
	// Submissions must not be abandoned when the socket drops mid-request.
	ctx := context.Background()

	switch msg.Action {
	case ws.ActionPing:
		return ws.Response{Event: ws.EventPong}, true

	case ws.ActionState:
		st, err := h.sessionService.State(studentID)
		if err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventState, Data: st}, true

	case ws.ActionAnswer:
		if msg.Answer == nil || msg.Answer.QuestionID == "" {
			return errorResponse(response.ErrInvalidPayload, "answer.questionId wajib diisi"), true
		}
		st, err := h.sessionService.Answer(ctx, studentID, msg.Answer.ToAnswer())
		if err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventState, Data: st}, true

	case ws.ActionNavigate:
		if msg.Index == nil {
			return errorResponse(response.ErrInvalidPayload, "index wajib diisi"), true
		}
		st, err := h.sessionService.Navigate(ctx, studentID, *msg.Index)
		if err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventState, Data: st}, true

	case ws.ActionFinish:
		dialog, err := h.sessionService.RequestFinish(studentID)
		if err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventConfirm, Data: dialog}, true

	case ws.ActionCancelFinish:
		if err := h.sessionService.CancelFinish(studentID); err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventAck, Data: msg.Action}, true

	case ws.ActionDismissWarning:
		if err := h.sessionService.DismissWarning(studentID); err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{Event: ws.EventAck, Data: msg.Action}, true

	case ws.ActionConfirmFinish:
		// The finished event arrives through the session's event stream.
		if _, err := h.sessionService.ConfirmFinish(ctx, studentID); err != nil {
			return h.errorFrom(err, log), true
		}
		return ws.Response{}, false

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return errorResponse(response.ErrInvalidPayload, "unknown action: "+string(msg.Action)), true
	}
}

// writePump is the only writer on conn. It forwards replies and session
// events, pings the peer, and closes the connection when either side ends.
func (h *WSHandler) writePump(conn *websocket.Conn, live *service.LiveSession, send <-chan ws.Response, readerDone <-chan struct{}, writerDone chan<- struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(ws.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(writerDone)
	}()

	for {
		select {
		case <-readerDone:
			return

		case res := <-send:
			if err := ws.WriteTyped(conn, res); err != nil {
				log.Debug().Err(err).Msg("Write failed")
				return
			}

		case ev := <-live.Events:
			if err := ws.WriteTyped(conn, eventResponse(ev)); err != nil {
				log.Debug().Err(err).Msg("Write failed")
				return
			}
			if ev.Type == service.SessionEventFinished {
				h.closeNormally(conn)
				return
			}

		case <-live.Done():
			// A finished event may still be buffered when the runner exits.
			select {
			case ev := <-live.Events:
				_ = ws.WriteTyped(conn, eventResponse(ev))
			default:
			}
			h.closeNormally(conn)
			return

		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ws.WriteWait))
}

func (h *WSHandler) errorFrom(err error, log zerolog.Logger) ws.Response {
	e := classify(err)
	if e.internal {
		log.Error().Err(err).Msg("Session action failed")
	}
	return errorResponse(e.code, e.text())
}

func errorResponse(code response.ErrCode, msg string) ws.Response {
	return ws.Response{Event: ws.EventError, Code: string(code), Message: msg}
}

func eventResponse(ev service.SessionEvent) ws.Response {
	switch ev.Type {
	case service.SessionEventLowTime:
		return ws.Response{Event: ws.EventLowTime, Data: ev.Dialog}
	default:
		return ws.Response{Event: ws.EventFinished, Data: ev.Student}
	}
}

// enqueue hands res to the writer. It reports false once the writer is gone.
func enqueue(send chan<- ws.Response, done <-chan struct{}, res ws.Response) bool {
	select {
	case send <- res:
		return true
	case <-done:
		return false
	}
}
