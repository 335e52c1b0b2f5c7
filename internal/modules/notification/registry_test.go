package notification

import (
	"fmt"
	"sync"
	"testing"

	"propertyhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id      string
	channel string

	mu     sync.Mutex
	frames [][]byte
	err    error
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func newChatConn(id string, orderID int64) *fakeConn {
	return &fakeConn{id: id, channel: ChatChannel(orderID)}
}

func (f *fakeConn) ID() string      { return f.id }
func (f *fakeConn) Channel() string { return f.channel }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) Frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var (
	owner7   = domain.NewIdentity(domain.RoleOwner, 7)
	worker3  = domain.NewIdentity(domain.RoleWorker, 3)
	manager1 = domain.NewIdentity(domain.RoleManager, 1)
	manager2 = domain.NewIdentity(domain.RoleManager, 2)
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("a")

	r.Register(owner7, c)
	r.Register(owner7, c)

	assert.Len(t, r.ConnectionsFor(owner7), 1)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.IsOnline(owner7))
}

func TestRegistry_MultipleConnectionsPerIdentity(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")

	r.Register(owner7, a)
	r.Register(owner7, b)
	require.Len(t, r.ConnectionsFor(owner7), 2)

	assert.True(t, r.Unregister(owner7, a))
	conns := r.ConnectionsFor(owner7)
	require.Len(t, conns, 1)
	assert.Same(t, b, conns[0])
}

func TestRegistry_UnregisterLastDropsIdentity(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("a")

	r.Register(worker3, c)
	assert.True(t, r.Unregister(worker3, c))

	assert.False(t, r.IsOnline(worker3))
	assert.Empty(t, r.ConnectionsFor(worker3))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UnregisterWrongIdentityIsNoop(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("a")

	r.Register(worker3, c)
	assert.False(t, r.Unregister(owner7, c))
	assert.False(t, r.Unregister(owner7, newFakeConn("other")))
	assert.True(t, r.IsOnline(worker3))
}

func TestRegistry_ReRegisterMovesConnection(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("a")

	r.Register(owner7, c)
	r.Register(manager1, c)

	assert.False(t, r.IsOnline(owner7))
	assert.True(t, r.IsOnline(manager1))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AllManagers(t *testing.T) {
	r := NewRegistry()
	m1a, m1b, m2 := newFakeConn("m1a"), newFakeConn("m1b"), newFakeConn("m2")

	r.Register(manager1, m1a)
	r.Register(manager1, m1b)
	r.Register(manager2, m2)
	r.Register(owner7, newFakeConn("o"))

	assert.ElementsMatch(t, []Conn{m1a, m1b, m2}, r.AllManagers())
}

func TestRegistry_EvictAndStats(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Register(owner7, a)
	r.Register(manager1, b)
	r.Register(manager2, newChatConn("chat-m", 12))
	r.Register(worker3, newChatConn("chat-w", 12))

	assert.Equal(t, map[domain.UserRole]int{
		domain.RoleOwner:   1,
		domain.RoleWorker:  0,
		domain.RoleManager: 1,
	}, r.Stats())

	assert.True(t, r.Evict(a))
	assert.False(t, r.Evict(a))
	assert.False(t, r.IsOnline(owner7))
	assert.True(t, r.IsOnline(manager1))
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Register(owner7, a)
	r.Register(worker3, b)

	r.CloseAll()

	assert.Equal(t, 0, r.Len())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.NewIdentity(domain.RoleOwner, int64(i%5))
			c := newFakeConn(fmt.Sprintf("c%d", i))
			r.Register(id, c)
			_ = r.ConnectionsFor(id)
			_ = r.AllManagers()
			r.Unregister(id, c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	for i := 0; i < 5; i++ {
		assert.False(t, r.IsOnline(domain.NewIdentity(domain.RoleOwner, int64(i))))
	}
}
