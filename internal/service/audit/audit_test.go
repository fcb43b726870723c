package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditlog "github.com/twocards/backoffice/internal/model/audit"
	"github.com/twocards/backoffice/internal/store/sqlite"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	block   chan struct{}
}

func (m *memorySink) Record(_ context.Context, e Entry) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

func (m *memorySink) snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func TestRecorderPersistsAndLists(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	rec := NewRecorder(sqlite.NewAuditRepo(db), nil)
	rec.Record(ctx, Entry{Action: "chat.visitor_message", Details: map[string]any{"visitor_name": "Ali"}})
	rec.Record(ctx, Entry{Action: "system.status_checked"})

	logs, err := rec.List(ctx, auditlog.Filter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.NotEmpty(t, l.EventID)
		assert.False(t, l.CreatedAt.IsZero())
	}

	filtered, err := rec.List(ctx, auditlog.Filter{Action: "chat.visitor_message"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Ali", filtered[0].Details["visitor_name"])
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	rec := NewRecorder(sqlite.NewAuditRepo(db), nil)
	require.NoError(t, db.Close())

	assert.NotPanics(t, func() {
		rec.Record(ctx, Entry{Action: "auth.login", UserID: UserID(1)})
	})
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Record(context.Background(), Entry{Action: "users.update"})
	}
	d.Close()

	entries := sink.snapshot()
	assert.Len(t, entries, 10)
	assert.Zero(t, d.Dropped())

}

func TestDispatcherCountsEntriesAfterClose(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 8}, sink)
	d.Close()

	d.Record(context.Background(), Entry{Action: "chat.visitor_message"})
	d.Record(context.Background(), Entry{Action: "chat.staff_message"})

	assert.Empty(t, sink.snapshot())
	assert.Equal(t, uint64(2), d.Dropped())
}

func TestDispatcherRecordRacingClose(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 4}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Record(context.Background(), Entry{Action: "settings.update"})
			}
		}()
	}
	time.Sleep(time.Millisecond)
	d.Close()
	wg.Wait()

	assert.Equal(t, uint64(400), d.Dropped()+uint64(len(sink.snapshot())))
}

func TestDispatcherStampsAtEnqueue(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1}, sink)

	before := time.Now().UTC()
	d.Record(context.Background(), Entry{Action: "auth.login"})
	d.Close()

	entries := sink.snapshot()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].EventID)
	assert.False(t, entries[0].At.Before(before))
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Record(context.Background(), Entry{Action: "chat.staff_message"})
	}
	// At most one entry is in flight in the sink and one in the buffer.
	assert.GreaterOrEqual(t, d.Dropped(), uint64(48))

	close(sink.block)
	d.Close()
	assert.Equal(t, uint64(50), d.Dropped()+uint64(len(sink.snapshot())))
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Record(context.Background(), Entry{Action: "x"})
		d.Close()
	})
	assert.Zero(t, d.Dropped())
}
