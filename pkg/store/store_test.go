package store

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	First string `json:"first"`
	Last  string `json:"last"`
	Count int    `json:"count"`
}

func first(s *testState) *string { return &s.First }
func last(s *testState) *string  { return &s.Last }
func count(s *testState) *int    { return &s.Count }

func TestGetReturnsInitial(t *testing.T) {
	d := New(testState{First: "a", Count: 3})

	assert.Equal(t, testState{First: "a", Count: 3}, d.Get())
	assert.Equal(t, uint64(0), d.Version())
	assert.Equal(t, "store", d.Name())
	assert.Equal(t, 0, d.Subscribers())
}

func TestSetMergesInOrder(t *testing.T) {
	d := New(testState{})

	d.Set(
		Assign(first, "A"),
		Assign(last, "L"),
		Assign(first, "B"),
	)

	assert.Equal(t, testState{First: "B", Last: "L"}, d.Get())
}

func TestSetScenarioFirstAda(t *testing.T) {
	d := New(testState{})
	calls := 0
	d.Subscribe(func() { calls++ })

	d.Set(Assign(first, "Ada"))

	assert.Equal(t, testState{First: "Ada", Last: "", Count: 0}, d.Get())
	assert.Equal(t, 1, calls)
}

func TestSetNotifiesEachSubscriberOnce(t *testing.T) {
	d := New(testState{})
	var a, b int
	d.Subscribe(func() { a++ })
	d.Subscribe(func() { b++ })

	d.Set(Assign(first, "x"), Assign(last, "y"), Assign(count, 1))

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestSetWithoutPartialsStillNotifies(t *testing.T) {
	d := New(testState{Count: 1})
	before := d.Snapshot()
	calls := 0
	d.Subscribe(func() { calls++ })

	d.Set()

	assert.Equal(t, 1, calls)
	assert.Equal(t, testState{Count: 1}, d.Get())
	assert.NotSame(t, before, d.Snapshot())
	assert.Equal(t, uint64(1), d.Version())
}

func TestSnapshotIdentityChangesOnSet(t *testing.T) {
	d := New(testState{})
	s1 := d.Snapshot()
	assert.Same(t, s1, d.Snapshot())

	d.Set(Assign(count, 0))
	s2 := d.Snapshot()

	assert.NotSame(t, s1, s2)
	assert.Equal(t, *s1, *s2)
}

func TestNoStaleReadAcrossSets(t *testing.T) {
	d := New(testState{})
	sel := func(s testState) int { return s.Count }

	d.Set(Assign(count, 1))
	v1 := sel(d.Get())
	d.Set(Assign(count, sel(d.Get())+1))
	v2 := sel(d.Get())

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	d := New(testState{})
	calls := 0
	unsubscribe := d.Subscribe(func() { calls++ })

	d.Set(Assign(count, 1))
	unsubscribe()
	d.Set(Assign(count, 2))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, d.Subscribers())
}

func TestDoubleUnsubscribeIsNoop(t *testing.T) {
	d := New(testState{})
	var a, b int
	unsubA := d.Subscribe(func() { a++ })
	d.Subscribe(func() { b++ })

	unsubA()
	unsubA()
	require.Equal(t, 1, d.Subscribers())

	d.Set()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestSameCallbackTwiceIsTwoSubscriptions(t *testing.T) {
	d := New(testState{})
	calls := 0
	cb := func() { calls++ }

	unsub1 := d.Subscribe(cb)
	d.Subscribe(cb)
	d.Set()
	assert.Equal(t, 2, calls)

	unsub1()
	d.Set()
	assert.Equal(t, 3, calls)
}

func TestSubscribeNilCallback(t *testing.T) {
	d := New(testState{})
	unsubscribe := d.Subscribe(nil)
	assert.Equal(t, 0, d.Subscribers())
	assert.NotPanics(t, unsubscribe)
}

func TestSubscriberAddedDuringPassIsNotCalled(t *testing.T) {
	d := New(testState{})
	late := 0
	added := false
	d.Subscribe(func() {
		if !added {
			added = true
			d.Subscribe(func() { late++ })
		}
	})

	d.Set()
	assert.Equal(t, 0, late)
	assert.Equal(t, 2, d.Subscribers())

	d.Set()
	assert.Equal(t, 1, late)
}

func TestSubscriberRemovedDuringPassIsSkipped(t *testing.T) {
	d := New(testState{})
	var order []string
	var unsubB func()

	d.Subscribe(func() {
		order = append(order, "a")
		unsubB()
	})
	unsubB = d.Subscribe(func() { order = append(order, "b") })
	d.Subscribe(func() { order = append(order, "c") })

	d.Set()

	assert.Equal(t, []string{"a", "c"}, order)
	assert.Equal(t, 2, d.Subscribers())
}

func TestSubscriberMayUnsubscribeItself(t *testing.T) {
	d := New(testState{})
	calls := 0
	var unsubscribe func()
	unsubscribe = d.Subscribe(func() {
		calls++
		unsubscribe()
	})

	d.Set()
	d.Set()
	assert.Equal(t, 1, calls)
}

func TestReentrantSetCompletesBeforeOuterPassContinues(t *testing.T) {
	d := New(testState{})
	var seen []int

	d.Subscribe(func() {
		if d.Get().Count == 1 {
			d.Set(Assign(count, 2))
		}
	})
	d.Subscribe(func() {
		seen = append(seen, d.Get().Count)
	})

	d.Set(Assign(count, 1))

	// The nested pass runs first, then the outer pass reads the latest record.
	assert.Equal(t, []int{2, 2}, seen)
	assert.Equal(t, 2, d.Get().Count)
	assert.Equal(t, uint64(2), d.Version())
}

func TestSubscriberPanicPropagates(t *testing.T) {
	d := New(testState{})
	after := 0
	d.Subscribe(func() { panic("boom") })
	d.Subscribe(func() { after++ })

	assert.PanicsWithValue(t, "boom", func() { d.Set(Assign(count, 7)) })
	assert.Equal(t, 7, d.Get().Count)
	assert.Equal(t, 0, after)
}

func TestSetDoesNotAliasRecordMaps(t *testing.T) {
	d := New(Record{"first": "", "count": 0})
	before := d.Get()

	d.Set(Fields(Record{"first": "Ada"}))

	assert.Equal(t, "", before["first"])
	assert.Equal(t, Record{"first": "Ada", "count": 0}, d.Get())
}

func TestFieldsOnNilRecord(t *testing.T) {
	d := New[Record](nil)
	d.Set(Fields(Record{"count": 1}))
	assert.Equal(t, Record{"count": 1}, d.Get())
}

func TestUpdateAndReplace(t *testing.T) {
	d := New(testState{Count: 1})

	d.Set(Update(count, func(n int) int { return n + 1 }))
	assert.Equal(t, 2, d.Get().Count)

	d.Set(Replace(testState{First: "x"}), Assign(last, "y"))
	assert.Equal(t, testState{First: "x", Last: "y"}, d.Get())
}

func TestNilPartialIsIgnored(t *testing.T) {
	d := New(testState{})
	assert.NotPanics(t, func() { d.Set(nil, Assign(count, 1)) })
	assert.Equal(t, 1, d.Get().Count)
}

func TestLoggerReceivesDebugRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := New(testState{}, WithName("app"), WithLogger(logger))
	unsubscribe := d.Subscribe(func() {})
	d.Set(Assign(count, 1))
	unsubscribe()

	out := buf.String()
	assert.Contains(t, out, "store subscribe")
	assert.Contains(t, out, "store set")
	assert.Contains(t, out, "store unsubscribe")
	assert.Equal(t, 3, strings.Count(out, "store=app"))
}

type recordingObserver struct {
	sets     []string
	notified []int
	counts   []int
}

func (r *recordingObserver) SetStarted(store string) func(int) {
	r.sets = append(r.sets, store)
	return func(n int) { r.notified = append(r.notified, n) }
}

func (r *recordingObserver) SubscribersChanged(_ string, _, n int) {
	r.counts = append(r.counts, n)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	d := New(testState{}, WithName("app"), WithObserver(obs), WithObserver(nil))

	unsub1 := d.Subscribe(func() {})
	d.Subscribe(func() {})
	d.Set()
	unsub1()
	d.Set()

	assert.Equal(t, []string{"app", "app"}, obs.sets)
	assert.Equal(t, []int{2, 1}, obs.notified)
	assert.Equal(t, []int{1, 2, 1}, obs.counts)
}

func TestMultipleObservers(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	d := New(testState{}, WithObserver(a), WithObserver(b))

	d.Subscribe(func() {})
	d.Set()

	for _, obs := range []*recordingObserver{a, b} {
		assert.Equal(t, []int{1}, obs.notified)
		assert.Equal(t, []int{1}, obs.counts)
	}
}

func TestObserverSeesPanickingSet(t *testing.T) {
	obs := &recordingObserver{}
	d := New(testState{}, WithObserver(obs))
	d.Subscribe(func() { panic("boom") })

	assert.Panics(t, func() { d.Set() })
	assert.Equal(t, []int{1}, obs.notified)
}
