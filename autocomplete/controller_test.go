package autocomplete

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securities-search/models"
	"securities-search/search"
)

type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
	engine  search.SearchEngine
}

func (r *recordingSearcher) Search(query string) []models.Security {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	return r.engine.Search(query)
}

func (r *recordingSearcher) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func newSearcher(securities ...models.Security) *recordingSearcher {
	if len(securities) == 0 {
		securities = []models.Security{
			{Ticker: "AAPL", Name: "Apple Inc."},
			{Ticker: "AAP", Name: "Advance Auto Parts"},
			{Ticker: "AMD", Name: "Advanced Micro Devices"},
			{Ticker: "MSFT", Name: "Microsoft"},
		}
	}
	return &recordingSearcher{engine: search.NewInMemoryEngine(securities)}
}

func newController(t *testing.T, src Searcher, opts ...Option) (*Controller, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	opts = append([]Option{WithScheduler(sched)}, opts...)
	return New(src, opts...), sched
}

func tickersOf(securities []models.Security) []string {
	out := make([]string, 0, len(securities))
	for _, s := range securities {
		out = append(out, s.Ticker)
	}
	return out
}

func TestInputDebounces(t *testing.T) {
	src := newSearcher()
	c, sched := newController(t, src)

	c.Input("A")
	st := c.State()
	assert.Equal(t, "A", st.Text, "text updates immediately")
	assert.Equal(t, Typing, st.Phase)
	assert.True(t, st.Open)
	assert.Empty(t, src.Queries(), "search is deferred")

	sched.Advance(299 * time.Millisecond)
	assert.Empty(t, src.Queries())

	sched.Advance(time.Millisecond)
	assert.Equal(t, []string{"A"}, src.Queries())

	st = c.State()
	assert.Equal(t, ResultsShown, st.Phase)
	assert.Equal(t, "A", st.Query)
	assert.Equal(t, []string{"AAP", "AMD", "AAPL"}, tickersOf(st.Results))
	assert.Equal(t, -1, st.Highlighted)
}

func TestKeystrokesWithinWindowCoalesce(t *testing.T) {
	src := newSearcher()
	c, sched := newController(t, src)

	for _, text := range []string{"a", "aa", "aap", "aapl"} {
		c.Input(text)
		sched.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, src.Queries())
	assert.Equal(t, 1, sched.Pending(), "superseded timers are cancelled")

	sched.Advance(time.Second)
	assert.Equal(t, []string{"aapl"}, src.Queries())
	assert.Equal(t, []string{"AAPL"}, tickersOf(c.State().Results))
}

func TestStaleCallbackDiscarded(t *testing.T) {
	src := newSearcher()
	sched := NewManualScheduler()

	// A scheduler whose Stop never succeeds models a timer that already
	// fired and is waiting to run.
	c := New(src, WithScheduler(unstoppable{sched}))
	c.Input("MS")
	c.Input("AM")
	sched.Advance(time.Second)

	assert.Equal(t, []string{"AM"}, src.Queries())
	assert.Equal(t, "AM", c.State().Query)
}

type unstoppable struct{ *ManualScheduler }

type noStop struct{}

func (noStop) Stop() bool { return false }

func (u unstoppable) AfterFunc(d time.Duration, f func()) Timer {
	u.ManualScheduler.AfterFunc(d, f)
	return noStop{}
}

func TestInputTrimsAndClearsOnEmpty(t *testing.T) {
	src := newSearcher()
	c, sched := newController(t, src)

	c.Input("  msft ")
	sched.Advance(DefaultDebounce)
	assert.Equal(t, []string{"msft"}, src.Queries())
	require.True(t, c.State().Open)

	c.Input("   ")
	st := c.State()
	assert.False(t, st.Open)
	assert.Equal(t, Idle, st.Phase)
	assert.Empty(t, st.Results)
	assert.Equal(t, 0, sched.Pending())
}

func TestNoResults(t *testing.T) {
	c, sched := newController(t, newSearcher())
	c.Input("ZZZZZZ")
	sched.Advance(DefaultDebounce)

	st := c.State()
	assert.Equal(t, NoResults, st.Phase)
	assert.True(t, st.Open)
	assert.Empty(t, st.Results)
	assert.False(t, c.Key(KeyDown))
}

func TestResultsCapped(t *testing.T) {
	var securities []models.Security
	for i := 0; i < 25; i++ {
		securities = append(securities, models.Security{Ticker: fmt.Sprintf("X%02d", i)})
	}
	c, sched := newController(t, newSearcher(securities...), WithLimit(10))
	c.Input("X")
	sched.Advance(DefaultDebounce)

	st := c.State()
	require.Len(t, st.Results, 10)
	assert.Equal(t, "X00", st.Results[0].Ticker)
	assert.Equal(t, "X09", st.Results[9].Ticker)
}

func TestKeyboardNavigationWraps(t *testing.T) {
	c, sched := newController(t, newSearcher())
	c.Input("A")
	sched.Advance(DefaultDebounce)
	require.Len(t, c.State().Results, 3)

	steps := []struct {
		key  Key
		want int
	}{
		{KeyDown, 0},
		{KeyDown, 1},
		{KeyDown, 2},
		{KeyDown, 0},
		{KeyUp, 2},
		{KeyUp, 1},
		{KeyUp, 0},
		{KeyUp, 2},
	}
	for i, step := range steps {
		assert.True(t, c.Key(step.key))
		assert.Equal(t, step.want, c.State().Highlighted, "step %d", i)
	}
}

func TestKeyUpFromNoneSelectsLast(t *testing.T) {
	c, sched := newController(t, newSearcher())
	c.Input("A")
	sched.Advance(DefaultDebounce)

	c.Key(KeyUp)
	assert.Equal(t, 2, c.State().Highlighted)
}

func TestEnterCommitsHighlighted(t *testing.T) {
	var selected []string
	src := newSearcher(models.Security{Ticker: "brk", Name: "Berkshire"}, models.Security{Ticker: "BRKX"})
	c, sched := newController(t, src, WithOnSelect(func(ticker string) {
		selected = append(selected, ticker)
	}))

	c.Input("br")
	sched.Advance(DefaultDebounce)

	assert.False(t, c.Key(KeyEnter), "nothing highlighted")
	assert.Empty(t, selected)

	c.Key(KeyDown)
	assert.True(t, c.Key(KeyEnter))
	assert.Equal(t, []string{"BRK"}, selected)

	st := c.State()
	assert.Equal(t, "BRK", st.Text, "text box shows the canonical ticker")
	assert.False(t, st.Open)
	assert.Equal(t, -1, st.Highlighted)
	assert.Equal(t, Idle, st.Phase)

	sched.Advance(time.Second)
	assert.Equal(t, []string{"br"}, src.Queries(), "selection does not search again")
}

func TestSelectionCancelsPendingSearch(t *testing.T) {
	src := newSearcher()
	c, sched := newController(t, src)

	c.Input("A")
	sched.Advance(DefaultDebounce)
	c.Input("AM")
	require.True(t, c.Select(0))
	sched.Advance(time.Second)

	assert.Equal(t, []string{"A"}, src.Queries())
	assert.Equal(t, "AAP", c.State().Text)
}

func TestSelectOutOfRange(t *testing.T) {
	c, _ := newController(t, newSearcher())
	assert.False(t, c.Select(0))
	assert.False(t, c.Select(-1))
}

func TestEscapeClosesWithoutTouchingText(t *testing.T) {
	c, sched := newController(t, newSearcher())
	c.Input("AA")
	sched.Advance(DefaultDebounce)
	c.Key(KeyDown)

	assert.True(t, c.Key(KeyEscape))
	st := c.State()
	assert.False(t, st.Open)
	assert.Equal(t, -1, st.Highlighted)
	assert.Equal(t, "AA", st.Text)
	assert.False(t, c.Key(KeyDown), "closed list ignores navigation")
}

func TestClickOutsideAndFocus(t *testing.T) {
	var selected []string
	c, sched := newController(t, newSearcher(), WithOnSelect(func(s string) { selected = append(selected, s) }))
	c.Input("AA")
	sched.Advance(DefaultDebounce)
	c.Key(KeyDown)

	c.ClickOutside()
	st := c.State()
	assert.False(t, st.Open)
	assert.Equal(t, -1, st.Highlighted)
	assert.Empty(t, selected)

	c.Focus()
	assert.True(t, c.State().Open, "focus reopens existing results")
}

func TestFocusWithoutResultsStaysClosed(t *testing.T) {
	c, _ := newController(t, newSearcher())
	c.Focus()
	assert.False(t, c.State().Open)
}

func TestHighlight(t *testing.T) {
	c, sched := newController(t, newSearcher())
	c.Highlight(0)
	assert.Equal(t, -1, c.State().Highlighted, "closed list ignores hover")

	c.Input("A")
	sched.Advance(DefaultDebounce)
	c.Highlight(1)
	assert.Equal(t, 1, c.State().Highlighted)
	c.Highlight(7)
	assert.Equal(t, 1, c.State().Highlighted)
}

func TestResetAndClose(t *testing.T) {
	src := newSearcher()
	c, sched := newController(t, src)

	c.Input("A")
	c.Reset()
	sched.Advance(time.Second)
	assert.Empty(t, src.Queries())
	assert.Equal(t, State{Phase: Idle, Highlighted: -1}, c.State())

	c.Input("M")
	c.Close()
	sched.Advance(time.Second)
	assert.Empty(t, src.Queries())
	assert.Equal(t, Idle, c.State().Phase)
	assert.Equal(t, "M", c.State().Text)
}

func TestOnChange(t *testing.T) {
	var states []State
	c, sched := newController(t, newSearcher(), WithOnChange(func(s State) { states = append(states, s) }))
	c.Input("MS")
	assert.Empty(t, states)
	sched.Advance(DefaultDebounce)
	require.Len(t, states, 1)
	assert.Equal(t, ResultsShown, states[0].Phase)
}

func TestNilSourceBehavesEmpty(t *testing.T) {
	c, sched := newController(t, nil)
	c.Input("AAPL")
	sched.Advance(DefaultDebounce)
	assert.Equal(t, NoResults, c.State().Phase)
}

func TestSearchFuncAdapter(t *testing.T) {
	c, sched := newController(t, SearchFunc(func(q string) []models.Security {
		return []models.Security{{Ticker: q}}
	}), WithDebounce(50*time.Millisecond))
	c.Input("abc")
	sched.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"abc"}, tickersOf(c.State().Results))
}

func TestInstancesIndependent(t *testing.T) {
	src := newSearcher()
	sched := NewManualScheduler()
	a := New(src, WithScheduler(sched))
	b := New(src, WithScheduler(sched))

	a.Input("AA")
	b.Input("MS")
	sched.Advance(DefaultDebounce)

	assert.Equal(t, []string{"AAP", "AAPL"}, tickersOf(a.State().Results))
	assert.Equal(t, []string{"MSFT"}, tickersOf(b.State().Results))
}

func TestRealSchedulerDebounce(t *testing.T) {
	src := newSearcher()
	done := make(chan State, 1)
	c := New(src, WithDebounce(10*time.Millisecond), WithOnChange(func(s State) { done <- s }))

	c.Input("A")
	c.Input("AM")

	select {
	case st := <-done:
		assert.Equal(t, "AM", st.Query)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search did not fire")
	}
	assert.Equal(t, []string{"AM"}, src.Queries())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "typing", Typing.String())
	assert.Equal(t, "results", ResultsShown.String())
	assert.Equal(t, "no-results", NoResults.String())
}
