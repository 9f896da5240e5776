package records

import "context"

// Origin says where a write came from.
type Origin int

const (
	// OriginLocal is a change made on this device.
	OriginLocal Origin = iota
	// OriginRemote is a change applied from a pulled remote snapshot.
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

type originKey struct{}

// WithOrigin marks writes made with ctx as coming from origin.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin carried by ctx, OriginLocal by default.
func OriginFrom(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey{}).(Origin); ok {
		return o
	}
	return OriginLocal
}

// Change describes one successful write.
type Change struct {
	Key    string
	Origin Origin
}

// Data reports whether the change touched snapshot content rather than a
// setting.
func (c Change) Data() bool {
	return IsDataKey(c.Key)
}

// Subscribe registers fn to be called after every successful write. fn runs
// on the writer's goroutine and must not block. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
