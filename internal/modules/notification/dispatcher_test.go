package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"propertyhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, rec Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type panicConn struct{ fakeConn }

func (p *panicConn) Send([]byte) error { panic("boom") }

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func newTestDispatcher(r *Registry, opts ...Option) *Dispatcher {
	return NewDispatcher(r, zap.NewNop(), opts...)
}

func TestDispatch_OwnerStatusUpdateReachesEveryOwnerConnection(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Register(owner7, a)
	r.Register(owner7, b)
	r.Register(manager1, newFakeConn("m"))

	n := newTestDispatcher(r).Dispatch(context.Background(),
		OwnerStatusUpdate(owner7, 42, map[string]any{"id": 42, "status": "in_progress"}))

	assert.Equal(t, 2, n)
	for _, c := range []*fakeConn{a, b} {
		frames := c.Frames()
		require.Len(t, frames, 1)
		msg := decode(t, frames[0])
		assert.Equal(t, "repair_status_update", msg["type"])
		assert.Equal(t, "in_progress", msg["data"].(map[string]any)["status"])
	}
}

func TestDispatch_FailingConnectionIsEvicted(t *testing.T) {
	r := NewRegistry()
	good, bad := newFakeConn("good"), newFakeConn("bad")
	bad.err = domain.ErrTransportFailure
	r.Register(owner7, good)
	r.Register(owner7, bad)

	n := newTestDispatcher(r).Dispatch(context.Background(), OwnerStatusUpdate(owner7, 1, nil))

	assert.Equal(t, 1, n)
	assert.Len(t, good.Frames(), 1)
	assert.True(t, bad.IsClosed())
	conns := r.ConnectionsFor(owner7)
	require.Len(t, conns, 1)
	assert.Same(t, good, conns[0])
}

func TestDispatch_PanickingConnectionIsEvicted(t *testing.T) {
	r := NewRegistry()
	p := &panicConn{fakeConn{id: "p"}}
	r.Register(manager1, p)

	var n int
	assert.NotPanics(t, func() {
		n = newTestDispatcher(r).Dispatch(context.Background(), NewRepair(map[string]any{"id": 1}))
	})
	assert.Equal(t, 0, n)
	assert.False(t, r.IsOnline(manager1))
}

func TestDispatch_NoRecipientsIsNoop(t *testing.T) {
	r := NewRegistry()
	n := newTestDispatcher(r).Dispatch(context.Background(), WorkOrderAssigned(worker3, 5, nil))
	assert.Equal(t, 0, n)
}

func TestDispatch_NewRepairGoesToAllManagersOnly(t *testing.T) {
	r := NewRegistry()
	m1, m2, o := newFakeConn("m1"), newFakeConn("m2"), newFakeConn("o")
	r.Register(manager1, m1)
	r.Register(manager2, m2)
	r.Register(owner7, o)

	n := newTestDispatcher(r).Dispatch(context.Background(), NewRepair(map[string]any{"id": 9}))

	assert.Equal(t, 2, n)
	assert.Equal(t, "new_repair", decode(t, m1.Frames()[0])["type"])
	assert.Equal(t, "new_repair", decode(t, m2.Frames()[0])["type"])
	assert.Empty(t, o.Frames())
}

func TestDispatch_WorkerUpdateCarriesUpdateTypeAndOrderID(t *testing.T) {
	r := NewRegistry()
	w := newFakeConn("w")
	r.Register(worker3, w)

	newTestDispatcher(r).Dispatch(context.Background(),
		WorkerStatusUpdate(worker3, 11, UpdatePayment, map[string]any{"status": "pending_evaluation"}))

	msg := decode(t, w.Frames()[0])
	assert.Equal(t, "workorder_update", msg["type"])
	assert.Equal(t, "payment", msg["update_type"])
	assert.EqualValues(t, 11, msg["order_id"])
}

func TestDispatch_EvaluationSubmittedDeduplicatesConnections(t *testing.T) {
	r := NewRegistry()
	w, m := newFakeConn("w"), newFakeConn("m")
	r.Register(worker3, w)
	r.Register(manager1, m)

	ev := EvaluationSubmitted(worker3, 8, map[string]any{"rating": 5})
	ev.Target.Users = append(ev.Target.Users, worker3, manager1)
	n := newTestDispatcher(r).Dispatch(context.Background(), ev)

	assert.Equal(t, 2, n)
	assert.Len(t, w.Frames(), 1)
	assert.Len(t, m.Frames(), 1)
	assert.Equal(t, "repair_evaluated", decode(t, m.Frames()[0])["type"])
}

func TestDispatch_ChatMessageStaysOnRoomChannel(t *testing.T) {
	r := NewRegistry()
	notify := newFakeConn("notify")
	room := newChatConn("room", 42)
	otherRoom := newChatConn("other", 43)
	r.Register(owner7, notify)
	r.Register(owner7, room)
	r.Register(owner7, otherRoom)

	payload := map[string]any{"id": 1, "sender_id": 7, "message": "hello", "is_owner": true}
	n := newTestDispatcher(r).Dispatch(context.Background(),
		ChatMessage(42, []domain.Identity{owner7, worker3}, payload))

	assert.Equal(t, 1, n)
	assert.Empty(t, notify.Frames())
	assert.Empty(t, otherRoom.Frames())
	msg := decode(t, room.Frames()[0])
	assert.Equal(t, "message", msg["type"])
	assert.Equal(t, "hello", msg["message"])
	assert.NotContains(t, msg, "data")
}

func TestDispatch_RoleNotificationsSkipChatConnections(t *testing.T) {
	r := NewRegistry()
	room := newChatConn("room", 42)
	r.Register(owner7, room)

	n := newTestDispatcher(r).Dispatch(context.Background(), OwnerStatusUpdate(owner7, 42, nil))
	assert.Equal(t, 0, n)
	assert.Empty(t, room.Frames())
}

func TestDispatch_JournalReceivesRecordAndErrorsAreIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(manager1, newFakeConn("m"))

	j := new(MockJournal)
	j.On("Record", mock.Anything, mock.MatchedBy(func(rec Record) bool {
		return rec.Kind == KindComplaintRated &&
			rec.WireType == "complaint_rated" &&
			rec.Recipients == 1 &&
			rec.Delivered == 1 &&
			len(rec.Frame) > 0
	})).Return(errors.New("journal down")).Once()

	n := newTestDispatcher(r, WithJournal(j)).Dispatch(context.Background(),
		ComplaintRated(map[string]any{"id": 3, "rating": 4}))

	assert.Equal(t, 1, n)
	j.AssertExpectations(t)
}

func TestEvent_EncodeWrapsPayload(t *testing.T) {
	raw, err := ComplaintUpdate(owner7, map[string]any{"status": "deleted"}).Encode()
	require.NoError(t, err)

	msg := decode(t, raw)
	assert.Equal(t, "complaint_update", msg["type"])
	assert.Equal(t, "deleted", msg["data"].(map[string]any)["status"])
	assert.NotContains(t, msg, "update_type")
}

func TestEvent_EncodeChatRejectsNonObject(t *testing.T) {
	_, err := ChatMessage(1, nil, "plain text").Encode()
	assert.Error(t, err)
}
