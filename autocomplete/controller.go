// Package autocomplete implements the incremental query controller behind a
// securities search box: debounced searches, dropdown state, keyboard
// navigation and selection.
package autocomplete

import (
	"strings"
	"sync"
	"time"

	"securities-search/models"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLimit    = 10
)

// Searcher answers prefix queries synchronously.
type Searcher interface {
	Search(query string) []models.Security
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(query string) []models.Security

func (f SearchFunc) Search(query string) []models.Security { return f(query) }

// Key is a navigation key.
type Key int

const (
	KeyDown Key = iota + 1
	KeyUp
	KeyEnter
	KeyEscape
)

// Phase is the controller's interaction phase. Searches run synchronously
// when the debounce fires, so there is no observable in-between phase.
type Phase int

const (
	Idle Phase = iota
	Typing
	ResultsShown
	NoResults
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Typing:
		return "typing"
	case ResultsShown:
		return "results"
	case NoResults:
		return "no-results"
	default:
		return "unknown"
	}
}

// State is a copy of the controller state for rendering.
type State struct {
	Phase Phase
	// Text is the raw text box content.
	Text string
	// Query is the last issued (debounced) query.
	Query       string
	Open        bool
	Highlighted int
	// Results holds at most the display limit of ranked matches.
	Results []models.Security
}

// Option configures a Controller.
type Option func(*Controller)

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

func WithLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithOnSelect registers the selection event handler. It receives the
// canonical ticker.
func WithOnSelect(fn func(ticker string)) Option {
	return func(c *Controller) { c.onSelect = fn }
}

// WithOnChange registers a handler called after asynchronous state
// changes, i.e. when a debounced search delivers results.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller drives one search box. Instances share nothing.
type Controller struct {
	source   Searcher
	sched    Scheduler
	delay    time.Duration
	limit    int
	onSelect func(string)
	onChange func(State)

	mu          sync.Mutex
	phase       Phase
	text        string
	query       string
	open        bool
	highlighted int
	results     []models.Security
	timer       Timer
	// gen identifies the latest scheduled search; older callbacks are
	// discarded.
	gen uint64
}

func New(source Searcher, opts ...Option) *Controller {
	c := &Controller{
		source:      source,
		sched:       RealScheduler{},
		delay:       DefaultDebounce,
		limit:       DefaultLimit,
		highlighted: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input records a keystroke. The text updates immediately; the search is
// deferred until the input has been quiet for the debounce period, and any
// previously pending search is cancelled.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.text = text
	c.highlighted = -1
	c.cancelLocked()

	query := strings.TrimSpace(text)
	if query == "" {
		c.open = false
		c.query = ""
		c.results = nil
		c.phase = Idle
		return
	}

	c.open = true
	c.phase = Typing
	gen := c.gen
	c.timer = c.sched.AfterFunc(c.delay, func() { c.fire(gen, query) })
}

func (c *Controller) fire(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	var results []models.Security
	if c.source != nil {
		results = c.source.Search(query)
	}
	if len(results) > c.limit {
		results = results[:c.limit]
	}

	c.query = query
	c.results = results
	c.highlighted = -1
	if len(results) == 0 {
		c.phase = NoResults
	} else {
		c.phase = ResultsShown
	}
	state := c.stateLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}

// cancelLocked stops the pending search and invalidates its callback.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Key handles a navigation key and reports whether it was consumed.
// Up and Down wrap around the shown results; Enter commits the highlighted
// result; Escape closes the list without touching the text.
func (c *Controller) Key(k Key) bool {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return false
	}

	n := len(c.results)
	switch k {
	case KeyEscape:
		c.open = false
		c.highlighted = -1
		c.mu.Unlock()
		return true
	case KeyDown:
		if n == 0 {
			break
		}
		if c.highlighted < n-1 {
			c.highlighted++
		} else {
			c.highlighted = 0
		}
		c.mu.Unlock()
		return true
	case KeyUp:
		if n == 0 {
			break
		}
		if c.highlighted > 0 {
			c.highlighted--
		} else {
			c.highlighted = n - 1
		}
		c.mu.Unlock()
		return true
	case KeyEnter:
		if c.highlighted < 0 || c.highlighted >= n {
			break
		}
		return c.commitLocked(c.highlighted)
	}
	c.mu.Unlock()
	return false
}

// Select commits the i-th shown result, e.g. on click.
func (c *Controller) Select(i int) bool {
	c.mu.Lock()
	if i < 0 || i >= len(c.results) {
		c.mu.Unlock()
		return false
	}
	return c.commitLocked(i)
}

// commitLocked is entered with c.mu held and releases it before emitting
// the selection event.
func (c *Controller) commitLocked(i int) bool {
	ticker := c.results[i].CanonicalTicker()

	c.cancelLocked()
	c.text = ticker
	c.query = ""
	c.results = nil
	c.open = false
	c.highlighted = -1
	c.phase = Idle
	onSelect := c.onSelect
	c.mu.Unlock()

	if onSelect != nil {
		onSelect(ticker)
	}
	return true
}

// Highlight moves the highlight to i, e.g. on pointer hover.
func (c *Controller) Highlight(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open && i >= 0 && i < len(c.results) {
		c.highlighted = i
	}
}

// Focus reopens the list when there is text and something to show.
func (c *Controller) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(c.text) != "" && len(c.results) > 0 {
		c.open = true
	}
}

// ClickOutside closes the list without committing.
func (c *Controller) ClickOutside() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.highlighted = -1
}

// Reset returns the controller to its initial empty state, e.g. when the
// hosting form is closed or cancelled.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.phase = Idle
	c.text = ""
	c.query = ""
	c.open = false
	c.highlighted = -1
	c.results = nil
}

// Close cancels any pending search. The controller stays usable.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	if c.phase == Typing {
		c.phase = Idle
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Phase:       c.phase,
		Text:        c.text,
		Query:       c.query,
		Open:        c.open,
		Highlighted: c.highlighted,
		Results:     append([]models.Security(nil), c.results...),
	}
}
