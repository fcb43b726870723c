package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/model/chat"
	"github.com/twocards/backoffice/internal/service/audit"
)

type fakeChannel struct {
	mu     sync.Mutex
	frames []chat.Outbound
	err    error
	closed bool
}

func (f *fakeChannel) Send(_ context.Context, frame chat.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) received() []chat.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Outbound(nil), f.frames...)
}

type memRepo struct {
	mu     sync.Mutex
	rows   []chat.Message
	failOn string
}

func (m *memRepo) Insert(_ context.Context, msg chat.Message) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && msg.Content == m.failOn {
		return 0, errors.New("disk full")
	}
	msg.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, msg)
	return msg.ID, nil
}

func (m *memRepo) Recent(_ context.Context, limit int) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chat.Message
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Record(_ context.Context, e audit.Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func TestRegistryStaffReplacement(t *testing.T) {
	r := NewRegistry()
	first, second := &fakeChannel{}, &fakeChannel{}

	assert.Nil(t, r.AdmitStaff(1, first))
	prev := r.AdmitStaff(1, second)
	assert.Same(t, first, prev)

	staff, _ := r.Counts()
	assert.Equal(t, 1, staff)

	// Teardown of the replaced connection must not evict the new one.
	assert.False(t, r.RemoveStaffIf(1, first))
	assert.Equal(t, []Channel{second}, r.Staff())

	assert.True(t, r.RemoveStaffIf(1, second))
	r.RemoveStaff(1)
	staff, _ = r.Counts()
	assert.Zero(t, staff)
}

func TestRegistryVisitorIDsAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := r.AdmitVisitor(&fakeChannel{})
		require.NoError(t, err)
		assert.Len(t, id, 22)
		assert.False(t, seen[id])
		seen[id] = true
	}
	_, visitors := r.Counts()
	assert.Equal(t, 100, visitors)

	for id := range seen {
		r.RemoveVisitor(id)
		r.RemoveVisitor(id)
	}
	assert.Empty(t, r.Visitors())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			ch := &fakeChannel{}
			r.AdmitStaff(id, ch)
			_ = r.Staff()
			r.RemoveStaffIf(id, ch)
		}(int64(i))
		go func() {
			defer wg.Done()
			id, err := r.AdmitVisitor(&fakeChannel{})
			if err != nil {
				return
			}
			_ = r.Visitors()
			r.RemoveVisitor(id)
		}()
	}
	wg.Wait()

	staff, visitors := r.Counts()
	assert.Zero(t, staff)
	assert.Zero(t, visitors)
}

func newTestBroadcaster() (*Broadcaster, *Registry, *memRepo, *recordingSink) {
	reg := NewRegistry()
	repo := &memRepo{}
	sink := &recordingSink{}
	b := NewBroadcaster(reg, repo, sink, nil)
	b.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b, reg, repo, sink
}

func TestVisitorMessageStaysPrivate(t *testing.T) {
	ctx := context.Background()
	b, reg, repo, sink := newTestBroadcaster()

	staffA, staffB := &fakeChannel{}, &fakeChannel{}
	reg.AdmitStaff(1, staffA)
	reg.AdmitStaff(2, staffB)
	v1, v2 := &fakeChannel{}, &fakeChannel{}
	id1, err := reg.AdmitVisitor(v1)
	require.NoError(t, err)
	_, err = reg.AdmitVisitor(v2)
	require.NoError(t, err)

	msg, err := b.FromVisitor(ctx, chat.VisitorOrigin{Name: "Ali", SessionID: id1}, "hi")
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Len(t, staffA.received(), 1)
	assert.Len(t, staffB.received(), 1)
	require.Len(t, v1.received(), 1)
	assert.Empty(t, v2.received())

	frame := v1.received()[0]
	assert.Equal(t, "Ali", frame.Sender)
	assert.Equal(t, chat.KindVisitor, frame.SenderType)
	assert.Equal(t, msg.ID, frame.ID)

	require.Len(t, repo.rows, 1)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "chat.visitor_message", sink.entries[0].Action)
	assert.Nil(t, sink.entries[0].UserID)
}

func TestStaffCommandReachesEveryone(t *testing.T) {
	ctx := context.Background()
	b, reg, _, sink := newTestBroadcaster()

	staff := &fakeChannel{}
	reg.AdmitStaff(7, staff)
	visitors := []*fakeChannel{{}, {}}
	for _, v := range visitors {
		_, err := reg.AdmitVisitor(v)
		require.NoError(t, err)
	}

	msg, err := b.FromStaff(ctx, chat.StaffOrigin{UserID: 7, Username: "sara"}, "/close ticket")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.True(t, msg.IsCommand)

	for _, ch := range append(visitors, staff) {
		got := ch.received()
		require.Len(t, got, 1)
		assert.True(t, got[0].IsCommand)
		assert.Equal(t, "sara", got[0].Sender)
		assert.Nil(t, got[0].VisitorName)
	}

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "chat.staff_message", sink.entries[0].Action)
	require.NotNil(t, sink.entries[0].UserID)
	assert.Equal(t, int64(7), *sink.entries[0].UserID)
}

func TestBlankContentIsDropped(t *testing.T) {
	ctx := context.Background()
	b, reg, repo, sink := newTestBroadcaster()
	staff := &fakeChannel{}
	reg.AdmitStaff(1, staff)

	for _, content := range []string{"", "   ", "\n\t"} {
		msg, err := b.FromStaff(ctx, chat.StaffOrigin{UserID: 1}, content)
		assert.NoError(t, err)
		assert.Nil(t, msg)
		msg, err = b.FromVisitor(ctx, chat.VisitorOrigin{Name: "x"}, content)
		assert.NoError(t, err)
		assert.Nil(t, msg)
	}

	assert.Empty(t, repo.rows)
	assert.Empty(t, staff.received())
	assert.Empty(t, sink.entries)
}

func TestPersistFailureDeliversNothing(t *testing.T) {
	ctx := context.Background()
	b, reg, repo, sink := newTestBroadcaster()
	repo.failOn = "lost"
	staff := &fakeChannel{}
	reg.AdmitStaff(1, staff)

	msg, err := b.FromStaff(ctx, chat.StaffOrigin{UserID: 1}, "lost")
	assert.Error(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, staff.received())
	assert.Empty(t, sink.entries)
}

func TestFailingChannelIsSkipped(t *testing.T) {
	ctx := context.Background()
	b, reg, _, _ := newTestBroadcaster()

	stale := &fakeChannel{err: errors.New("connection reset")}
	live := &fakeChannel{}
	reg.AdmitStaff(1, stale)
	reg.AdmitStaff(2, live)

	msg, err := b.FromStaff(ctx, chat.StaffOrigin{UserID: 2}, "still here")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Len(t, live.received(), 1)
}

func TestVisitorNameNormalization(t *testing.T) {
	assert.Equal(t, chat.DefaultVisitorName, NormalizeVisitorName("   "))
	assert.Equal(t, "Ali", NormalizeVisitorName("  Ali "))

	long := strings.Repeat("ب", 100)
	assert.Equal(t, strings.Repeat("ب", 64), NormalizeVisitorName(long))

	ctx := context.Background()
	b, _, repo, _ := newTestBroadcaster()
	_, err := b.FromVisitor(ctx, chat.VisitorOrigin{SessionID: "gone"}, "hello")
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, chat.DefaultVisitorName, *repo.rows[0].VisitorName())
}

func TestHistoryIsChronological(t *testing.T) {
	ctx := context.Background()
	b, _, repo, _ := newTestBroadcaster()
	for _, c := range []string{"m1", "m2", "m3"} {
		_, err := b.FromStaff(ctx, chat.StaffOrigin{UserID: 1}, c)
		require.NoError(t, err)
	}

	h := NewHistory(repo)
	got, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].Content)
	assert.Equal(t, "m3", got[1].Content)

	all, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "m1", all[0].Content)
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	staff := &fakeChannel{}
	visitor := &fakeChannel{}
	r.AdmitStaff(1, staff)
	id, err := r.AdmitVisitor(visitor)
	require.NoError(t, err)

	r.CloseAll()
	assert.True(t, staff.closed)
	assert.True(t, visitor.closed)

	late := &fakeChannel{}
	lateID, err := r.AdmitVisitor(late)
	require.NoError(t, err)
	assert.True(t, late.closed, "channels admitted during shutdown are closed at once")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.WaitEmpty(ctx), context.DeadlineExceeded)

	r.RemoveStaffIf(1, staff)
	r.RemoveVisitor(id)
	r.RemoveVisitor(lateID)
	require.NoError(t, r.WaitEmpty(context.Background()))
}
