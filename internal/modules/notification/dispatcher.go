package notification

import (
	"context"
	"fmt"
	"time"

	"propertyhub/internal/domain"

	"go.uber.org/zap"
)

// Record is what a Journal sees for each dispatched event.
type Record struct {
	Kind       Kind      `json:"kind"`
	WireType   string    `json:"wire_type"`
	OrderID    int64     `json:"order_id,omitempty"`
	Recipients int       `json:"recipients"`
	Delivered  int       `json:"delivered"`
	Frame      []byte    `json:"-"`
	At         time.Time `json:"at"`
}

// Journal mirrors dispatched events somewhere durable. It is an audit trail,
// not a delivery path: failures are logged and ignored.
type Journal interface {
	Record(ctx context.Context, rec Record) error
}

type Dispatcher struct {
	registry *Registry
	journal  Journal
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Dispatcher)

func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

func NewDispatcher(registry *Registry, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		registry: registry,
		logger:   logger.Named("dispatcher"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers ev to every resolved connection and returns how many
// accepted the frame. It never fails: a connection that rejects a frame is
// evicted and closed, and an event with no online recipient is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) int {
	frame, err := ev.Encode()
	if err != nil {
		d.logger.Error("encode event", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return 0
	}

	targets := d.resolve(ev.Target)
	delivered := 0
	for _, conn := range targets {
		if err := safeSend(conn, frame); err != nil {
			d.registry.Evict(conn)
			_ = conn.Close()
			d.logger.Warn("evicted connection after failed send",
				zap.String("conn_id", conn.ID()),
				zap.String("type", ev.WireType()),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	d.logger.Debug("event dispatched",
		zap.String("kind", string(ev.Kind)),
		zap.Int64("order_id", ev.OrderID),
		zap.Int("recipients", len(targets)),
		zap.Int("delivered", delivered),
	)

	if d.journal != nil {
		rec := Record{
			Kind:       ev.Kind,
			WireType:   ev.WireType(),
			OrderID:    ev.OrderID,
			Recipients: len(targets),
			Delivered:  delivered,
			Frame:      frame,
			At:         d.now().UTC(),
		}
		if err := d.journal.Record(ctx, rec); err != nil {
			d.logger.Warn("journal record failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}
	return delivered
}

// resolve returns the distinct connections on t.Channel belonging to t's identities.
func (d *Dispatcher) resolve(t Target) []Conn {
	seen := make(map[Conn]struct{})
	var out []Conn
	add := func(conns []Conn) {
		for _, c := range conns {
			if c.Channel() != t.Channel {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	seenID := make(map[domain.Identity]struct{}, len(t.Users))
	for _, id := range t.Users {
		if _, dup := seenID[id]; dup {
			continue
		}
		seenID[id] = struct{}{}
		add(d.registry.ConnectionsFor(id))
	}
	if t.Managers {
		add(d.registry.AllManagers())
	}
	return out
}

// safeSend turns a panicking Conn implementation into a send failure.
func safeSend(c Conn, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v: %w", r, domain.ErrTransportFailure)
		}
	}()
	return c.Send(frame)
}
