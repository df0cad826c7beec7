package websocket

import "github.com/grahaedukasi/graha-cbt/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer         Action = "answer"
	ActionNavigate       Action = "navigate"
	ActionFinish         Action = "finish"
	ActionCancelFinish   Action = "cancel_finish"
	ActionConfirmFinish  Action = "confirm_finish"
	ActionDismissWarning Action = "dismiss_warning"
	ActionState          Action = "state"
	ActionPing           Action = "ping"
)

// Request is one client message. Only the fields the action needs are set.
type Request struct {
	Action Action               `json:"action"`
	Answer *model.AnswerRequest `json:"answer,omitempty"`
	Index  *int                 `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventConfirm  Event = "confirm"
	EventLowTime  Event = "low_time"
	EventFinished Event = "finished"
	EventAck      Event = "ack"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// Response is every server message. Data carries the event's payload.
type Response struct {
	Event   Event       `json:"event"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}
