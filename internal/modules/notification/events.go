package notification

import (
	"encoding/json"
	"fmt"

	"propertyhub/internal/domain"
)

type Kind string

const (
	KindNewRepair           Kind = "new_repair"
	KindNewComplaint        Kind = "new_complaint"
	KindWorkOrderAssigned   Kind = "work_order_assigned"
	KindStatusUpdate        Kind = "status_update"
	KindWorkerUpdate        Kind = "worker_update"
	KindWorkOrderWithdrawn  Kind = "work_order_withdrawn"
	KindManagerStatusUpdate Kind = "manager_status_update"
	KindEvaluationSubmitted Kind = "evaluation_submitted"
	KindComplaintUpdate     Kind = "complaint_update"
	KindComplaintRated      Kind = "complaint_rated"
	KindChatMessage         Kind = "chat_message"
)

var wireTypes = map[Kind]string{
	KindNewRepair:           "new_repair",
	KindNewComplaint:        "new_complaint",
	KindWorkOrderAssigned:   "new_workorder",
	KindStatusUpdate:        "repair_status_update",
	KindWorkerUpdate:        "workorder_update",
	KindWorkOrderWithdrawn:  "workorder_deleted",
	KindManagerStatusUpdate: "repair_status_update",
	KindEvaluationSubmitted: "repair_evaluated",
	KindComplaintUpdate:     "complaint_update",
	KindComplaintRated:      "complaint_rated",
	KindChatMessage:         "message",
}

// Update types carried by workorder_update frames.
const (
	UpdateStatus  = "status"
	UpdatePayment = "payment"
)

// NotificationChannel is the channel of role connections.
const NotificationChannel = ""

// ChatChannel names the channel of one order's chat room.
func ChatChannel(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// Target selects recipients: explicit identities, optionally every manager,
// restricted to connections on Channel.
type Target struct {
	Users    []domain.Identity
	Managers bool
	Channel  string
}

// Event is transient; the dispatcher encodes it once and discards it.
type Event struct {
	Kind       Kind
	Target     Target
	OrderID    int64
	UpdateType string
	Payload    any
}

func (e Event) WireType() string {
	if t, ok := wireTypes[e.Kind]; ok {
		return t
	}
	return string(e.Kind)
}

type frame struct {
	Type       string `json:"type"`
	UpdateType string `json:"update_type,omitempty"`
	OrderID    int64  `json:"order_id,omitempty"`
	Data       any    `json:"data"`
}

// Encode renders the outbound frame. Chat messages are flat objects with a
// "type" field; everything else is wrapped as {"type","data"}.
func (e Event) Encode() ([]byte, error) {
	if e.Kind == KindChatMessage {
		return inlineType(e.WireType(), e.Payload)
	}
	f := frame{Type: e.WireType(), Data: e.Payload}
	if e.Kind == KindWorkerUpdate {
		f.UpdateType = e.UpdateType
		f.OrderID = e.OrderID
	}
	return json.Marshal(f)
}

func inlineType(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("chat payload must be an object: %w", err)
	}
	t, _ := json.Marshal(typ)
	fields["type"] = t
	return json.Marshal(fields)
}

func managers() Target { return Target{Managers: true} }

func user(id domain.Identity) Target { return Target{Users: []domain.Identity{id}} }

func NewRepair(payload any) Event {
	return Event{Kind: KindNewRepair, Target: managers(), Payload: payload}
}

func NewComplaint(payload any) Event {
	return Event{Kind: KindNewComplaint, Target: managers(), Payload: payload}
}

func WorkOrderAssigned(worker domain.Identity, orderID int64, payload any) Event {
	return Event{Kind: KindWorkOrderAssigned, Target: user(worker), OrderID: orderID, Payload: payload}
}

// OwnerStatusUpdate is the owner-facing status_update.
func OwnerStatusUpdate(owner domain.Identity, orderID int64, payload any) Event {
	return Event{Kind: KindStatusUpdate, Target: user(owner), OrderID: orderID, Payload: payload}
}

// WorkerStatusUpdate is the worker-facing status_update.
func WorkerStatusUpdate(worker domain.Identity, orderID int64, updateType string, payload any) Event {
	return Event{
		Kind:       KindWorkerUpdate,
		Target:     user(worker),
		OrderID:    orderID,
		UpdateType: updateType,
		Payload:    payload,
	}
}

func WorkOrderWithdrawn(worker domain.Identity, orderID int64, payload any) Event {
	return Event{Kind: KindWorkOrderWithdrawn, Target: user(worker), OrderID: orderID, Payload: payload}
}

func ManagerStatusUpdate(orderID int64, payload any) Event {
	return Event{Kind: KindManagerStatusUpdate, Target: managers(), OrderID: orderID, Payload: payload}
}

// EvaluationSubmitted goes to the assigned worker and to every manager.
func EvaluationSubmitted(worker domain.Identity, orderID int64, payload any) Event {
	t := managers()
	if !worker.IsZero() {
		t.Users = []domain.Identity{worker}
	}
	return Event{Kind: KindEvaluationSubmitted, Target: t, OrderID: orderID, Payload: payload}
}

func ComplaintUpdate(owner domain.Identity, payload any) Event {
	return Event{Kind: KindComplaintUpdate, Target: user(owner), Payload: payload}
}

func ComplaintRated(payload any) Event {
	return Event{Kind: KindComplaintRated, Target: managers(), Payload: payload}
}

// ChatMessage addresses the participants of one order on its chat channel.
func ChatMessage(orderID int64, participants []domain.Identity, payload any) Event {
	return Event{
		Kind:    KindChatMessage,
		Target:  Target{Users: participants, Channel: ChatChannel(orderID)},
		OrderID: orderID,
		Payload: payload,
	}
}

// Control frames written by sessions.

type controlFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func ConnectedFrame(message string) []byte {
	b, _ := json.Marshal(controlFrame{Type: "connected", Message: message})
	return b
}

func ErrorFrame(message string) []byte {
	b, _ := json.Marshal(controlFrame{Type: "error", Message: message})
	return b
}
