package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/view"
)

var testContext = NewContext[testState]("test")

// harness mounts an app whose top component provides testContext and
// captures the store it created.
type harness struct {
	root *reactive.Root
	data *Data[testState]
}

func mountApp(t *testing.T, initial testState, children ...any) *harness {
	t.Helper()

	h := &harness{}
	app := view.Func(func() *view.Node {
		h.data = Provide(testContext, initial)
		return view.Fragment(children...)
	})
	h.root = reactive.NewRoot("App", app)
	require.NoError(t, h.root.Mount())
	t.Cleanup(h.root.Dispose)
	return h
}

func (h *harness) flush(t *testing.T) map[string]string {
	t.Helper()
	patches, err := h.root.Flush()
	require.NoError(t, err)
	byName := make(map[string]string, len(patches))
	for _, p := range patches {
		byName[p.Name] = p.HTML
	}
	return byName
}

func (h *harness) renders(name string) int {
	return h.root.Find(name)[0].Renders()
}

func fieldView(sel Selector[testState, string]) view.Component {
	return view.Func(func() *view.Node {
		v, _, err := Use(testContext, sel)
		if err != nil {
			return view.Text(err.Error())
		}
		return view.El("span", v)
	})
}

func TestUseRendersSelectedValue(t *testing.T) {
	h := mountApp(t, testState{First: "Ada"},
		view.Mount("First", fieldView(func(s testState) string { return s.First })))

	assert.Contains(t, h.root.HTML(), "<span>Ada</span>")
}

func TestUseRerendersOnlyChangedSelectors(t *testing.T) {
	h := mountApp(t, testState{},
		view.Mount("First", fieldView(func(s testState) string { return s.First })),
		view.Mount("Last", fieldView(func(s testState) string { return s.Last })),
	)
	require.Equal(t, 2, h.data.Subscribers())

	h.data.Set(Assign(first, "X"))
	patches := h.flush(t)

	assert.Equal(t, map[string]string{"First": "<span>X</span>"}, patches)
	assert.Equal(t, 2, h.renders("First"))
	assert.Equal(t, 1, h.renders("Last"))
}

func TestUseUnchangedSelectionDoesNotRerender(t *testing.T) {
	h := mountApp(t, testState{First: "Ada"},
		view.Mount("First", fieldView(func(s testState) string { return s.First })))

	h.data.Set(Assign(count, 1))
	h.data.Set(Assign(first, "Ada"))

	assert.Empty(t, h.flush(t))
	assert.Equal(t, 1, h.renders("First"))
}

func TestUseSetterIsStoreSet(t *testing.T) {
	var setter Setter[testState]
	counter := view.Func(func() *view.Node {
		n, set, err := Use(testContext, func(s testState) int { return s.Count })
		require.NoError(t, err)
		setter = set
		return view.El("button",
			view.On("click", func(string) { set(Assign(count, n+1)) }),
			view.Textf("%d", n))
	})
	h := mountApp(t, testState{}, view.Mount("Counter", counter))

	handlers := h.root.Handlers()
	require.Len(t, handlers, 1)

	require.NoError(t, h.root.Dispatch(handlers[0], ""))
	assert.Equal(t, 1, h.data.Get().Count)
	patches := h.flush(t)
	assert.Contains(t, patches["Counter"], ">1</button>")

	// The handler bound by the second render reads the fresh count.
	require.NoError(t, h.root.Dispatch(h.root.Handlers()[0], ""))
	assert.Equal(t, 2, h.data.Get().Count)
	assert.Contains(t, h.flush(t)["Counter"], ">2</button>")

	setter(Assign(last, "via setter"))
	assert.Equal(t, "via setter", h.data.Get().Last)
}

func TestUseDerivedSelector(t *testing.T) {
	fullName := func(s testState) string { return s.First + " " + s.Last }
	h := mountApp(t, testState{First: "Ada", Last: "Byron"},
		view.Mount("FullName", fieldView(fullName)),
		view.Mount("Count", view.Func(func() *view.Node {
			n := mustUseValue(t, func(s testState) int { return s.Count })
			return view.Textf("%d", n)
		})),
	)
	assert.Contains(t, h.root.HTML(), "<span>Ada Byron</span>")

	h.data.Set(Assign(last, "Lovelace"))
	assert.Equal(t, map[string]string{"FullName": "<span>Ada Lovelace</span>"}, h.flush(t))

	h.data.Set(Assign(count, 5))
	assert.Equal(t, map[string]string{"Count": "5"}, h.flush(t))
}

// mustUseValue is MustUse returning only the value.
func mustUseValue[U any](t *testing.T, sel Selector[testState, U]) U {
	t.Helper()
	v, _ := MustUse(testContext, sel)
	return v
}

func TestUseWithEqual(t *testing.T) {
	always := view.Func(func() *view.Node {
		v, _, _ := Use(testContext,
			func(s testState) string { return s.First },
			WithEqual(func(a, b string) bool { return false }))
		return view.Text(v)
	})
	h := mountApp(t, testState{}, view.Mount("Always", always))

	h.data.Set(Assign(count, 1))
	h.flush(t)
	assert.Equal(t, 2, h.renders("Always"))
}

func TestUseInterfaceSelectionChangesType(t *testing.T) {
	records := NewContext[Record]("records")
	var data *Data[Record]
	field := func(key string) view.Component {
		return view.Func(func() *view.Node {
			v, _, err := Use(records, func(r Record) any { return r[key] })
			require.NoError(t, err)
			return view.El("span", fmt.Sprintf("%s=%v", key, v))
		})
	}
	app := view.Func(func() *view.Node {
		data = Provide(records, Record{"count": 0, "first": "Ada"})
		return view.Fragment(
			view.Mount("Count", field("count")),
			view.Mount("First", field("first")),
		)
	})
	r := reactive.NewRoot("App", app)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	p, err := PatchJSON[Record]([]byte(`{"count":1}`))
	require.NoError(t, err)
	require.NotPanics(t, func() { data.Set(p) })
	require.NotPanics(t, func() { data.Set(Fields(Record{"first": nil})) })

	_, err = r.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Find("Count")[0].Renders())
	assert.Equal(t, 2, r.Find("First")[0].Renders())
	assert.Contains(t, r.HTML(), "count=1")
}

func TestUseWithoutProvider(t *testing.T) {
	var useErr error
	orphan := view.Func(func() *view.Node {
		_, set, err := Use(testContext, func(s testState) int { return s.Count })
		useErr = err
		assert.Nil(t, set)
		return view.Text("orphan")
	})

	r := reactive.NewRoot("Orphan", orphan)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	require.Error(t, useErr)
	assert.True(t, errors.Is(useErr, ErrNoProvider))
	assert.Equal(t, "E001", exterrors.Code(useErr))
	assert.Contains(t, useErr.Error(), "E001")
}

func TestUseOutsideRender(t *testing.T) {
	_, _, err := Use(testContext, func(s testState) int { return s.Count })
	assert.True(t, errors.Is(err, ErrNoProvider))

	assert.Panics(t, func() {
		MustUse(testContext, func(s testState) int { return s.Count })
	})
}

func TestUseWithExplicitOwner(t *testing.T) {
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	d := New(testState{Count: 9})
	ProvideOn(testContext, owner, d)

	var got int
	reactive.WithOwner(owner, func() {
		owner.StartRender()
		defer owner.EndRender()
		got, _, _ = Use(testContext, func(s testState) int { return s.Count })
	})

	assert.Equal(t, 9, got)
	// No listener, so no subscription.
	assert.Equal(t, 0, d.Subscribers())
}

func TestUseSelectorPanicReturnsError(t *testing.T) {
	var useErr error
	boom := view.Func(func() *view.Node {
		_, _, useErr = Use(testContext, func(s testState) int {
			if s.Count > 0 {
				panic("bad count")
			}
			return s.Count
		})
		if useErr != nil {
			return view.Text("failed")
		}
		return view.Text("ok")
	})
	other := 0
	h := mountApp(t, testState{}, view.Mount("Boom", boom))
	h.data.Subscribe(func() { other++ })
	require.NoError(t, useErr)

	h.data.Set(Assign(count, 1))
	assert.Equal(t, 1, other, "other subscribers are still notified")

	patches := h.flush(t)
	assert.Equal(t, "failed", patches["Boom"])

	var selErr *SelectorError
	require.True(t, errors.As(useErr, &selErr))
	assert.Equal(t, "bad count", selErr.Value)
	assert.Equal(t, "E002", exterrors.Code(useErr))

	// Recovery: once the selector succeeds again the component re-renders.
	h.data.Set(Assign(count, 0))
	assert.Equal(t, "ok", h.flush(t)["Boom"])
	assert.NoError(t, useErr)
}

func TestSelectorErrorUnwrapsErrorValues(t *testing.T) {
	cause := errors.New("cause")
	err := &SelectorError{Value: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, (&SelectorError{Value: "text"}).Unwrap())
	assert.Equal(t, "store: selector panicked: text", (&SelectorError{Value: "text"}).Error())
}

func TestUseSubscriptionReleasedOnDispose(t *testing.T) {
	show := true
	var toggle func()
	parent := view.Func(func() *view.Node {
		d := Provide(testContext, testState{})
		toggle = func() {
			show = !show
			d.Set()
		}
		// Selecting show makes toggle re-render the parent.
		MustUse(testContext, func(s testState) bool { return show })
		if show {
			return view.Mount("Child", fieldView(func(s testState) string { return s.First }))
		}
		return view.Text("hidden")
	})

	r := reactive.NewRoot("Parent", parent)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	d, err := FromOwner(testContext, r.Top().Owner())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Subscribers())

	toggle()
	_, err = r.Flush()
	require.NoError(t, err)

	assert.Empty(t, r.Find("Child"))
	assert.Equal(t, 1, d.Subscribers())
}

func TestProviderMemoizesStore(t *testing.T) {
	var stores []*Data[testState]
	var bump func()
	cell := 0
	app := view.Func(func() *view.Node {
		d := Provide(testContext, testState{Count: cell})
		stores = append(stores, d)
		bump = func() { cell++; d.Set() }
		MustUse(testContext, func(testState) int { return cell })
		return view.Textf("%d", d.Get().Count)
	})

	r := reactive.NewRoot("App", app)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	bump()
	_, err := r.Flush()
	require.NoError(t, err)

	require.Len(t, stores, 2)
	assert.Same(t, stores[0], stores[1])
	assert.Equal(t, 0, stores[1].Get().Count, "initial is read only on first render")
}

func TestProviderNodeAndNamedStore(t *testing.T) {
	var d *Data[testState]
	app := view.Func(func() *view.Node {
		return Provider(testContext, testState{First: "P"},
			view.Mount("Reader", view.Func(func() *view.Node {
				d, _ = From(testContext)
				return fieldView(func(s testState) string { return s.First }).Render()
			})))
	})

	r := reactive.NewRoot("App", app)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	require.NotNil(t, d)
	assert.Equal(t, "test", d.Name())
	assert.Contains(t, r.HTML(), "<span>P</span>")
	assert.Equal(t, "test", testContext.Name())
}

func TestProvidersAreIndependent(t *testing.T) {
	h1 := mountApp(t, testState{First: "one"})
	h2 := mountApp(t, testState{First: "two"})

	h1.data.Set(Assign(first, "changed"))

	assert.NotSame(t, h1.data, h2.data)
	assert.Equal(t, "two", h2.data.Get().First)
}

func TestNestedProviderShadowsOuter(t *testing.T) {
	var inner string
	app := view.Func(func() *view.Node {
		Provide(testContext, testState{First: "outer"})
		return view.Mount("Inner", view.Func(func() *view.Node {
			Provide(testContext, testState{First: "inner"})
			inner = mustUseValue(t, func(s testState) string { return s.First })
			return view.Text(inner)
		}))
	})

	r := reactive.NewRoot("App", app)
	require.NoError(t, r.Mount())
	defer r.Dispose()

	assert.Equal(t, "inner", inner)
}

func TestProvideOutsideRenderCreatesStore(t *testing.T) {
	d := Provide(testContext, testState{Count: 2})
	assert.Equal(t, 2, d.Get().Count)
	assert.Equal(t, "test", d.Name())

	_, err := From(testContext)
	assert.True(t, errors.Is(err, ErrNoProvider))
}

func TestProvideDefaultsApplyToCreatedStores(t *testing.T) {
	obs := &recordingObserver{}
	var d *Data[testState]
	app := view.Func(func() *view.Node {
		d = Provide(testContext, testState{})
		return view.Text("x")
	})

	r := reactive.NewRoot("App", app, reactive.WithSetup(func(o *reactive.Owner) {
		ProvideDefaults(o, WithName("session"), WithObserver(obs))
	}))
	require.NoError(t, r.Mount())
	defer r.Dispose()

	d.Set()
	assert.Equal(t, "session", d.Name())
	assert.Equal(t, []string{"session"}, obs.sets)
}
