package engine

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/elum-utils/wordfilter/models"
)

// Stats contains runtime in-memory engine metrics.
type Stats struct {
	RuleCount        int64
	CompiledCount    int64
	LastLookupNanos  int64
	TotalLookups     int64
	TotalMatches     int64
	LastReloadNanos  int64
	TotalReloadCount int64
}

// matcher finds whole-word, case-insensitive occurrences of one word.
type matcher struct {
	re *regexp.Regexp
	// left and right are false when the word starts or ends with a rune
	// that is not a word rune; no boundary is required on that side.
	left, right bool
}

type state struct {
	order    []string
	rules    map[string]string
	matchers map[string]*matcher
}

func newState(capacity int) state {
	return state{
		order:    make([]string, 0, capacity),
		rules:    make(map[string]string, capacity),
		matchers: make(map[string]*matcher, capacity),
	}
}

// Engine owns the rule table and its compiled matchers. A single mutex
// guards both, so a filtering pass sees a rule set either before or after
// a mutation.
type Engine struct {
	mu    sync.Mutex
	state state

	lastLookupNanos atomic.Int64
	totalLookups    atomic.Int64
	totalMatches    atomic.Int64
	lastReloadNanos atomic.Int64
	totalReloads    atomic.Int64
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{state: newState(0)}
}

// NormalizeWord returns the table key for word.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// AddRule upserts one rule. An existing word keeps its position in the
// table. It returns false for an empty word.
func (e *Engine) AddRule(word, replacement string) bool {
	w := NormalizeWord(word)
	if w == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.state.rules[w]; !exists {
		e.state.order = append(e.state.order, w)
	}
	e.state.rules[w] = replacement
	delete(e.state.matchers, w)
	return true
}

// RemoveRule deletes one rule and its matcher.
func (e *Engine) RemoveRule(word string) bool {
	w := NormalizeWord(word)
	if w == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.state.rules[w]; !exists {
		return false
	}
	delete(e.state.rules, w)
	delete(e.state.matchers, w)
	order := e.state.order[:0]
	for _, o := range e.state.order {
		if o != w {
			order = append(order, o)
		}
	}
	e.state.order = order
	return true
}

// ReplaceAll replaces the whole table atomically. Input order becomes the
// application order; a repeated word keeps its first position and its last
// replacement.
func (e *Engine) ReplaceAll(rules []models.Rule) {
	start := time.Now()
	next := newState(len(rules))
	for _, rule := range rules {
		w := NormalizeWord(rule.Word)
		if w == "" {
			continue
		}
		if _, exists := next.rules[w]; !exists {
			next.order = append(next.order, w)
		}
		next.rules[w] = rule.Replacement
	}

	e.mu.Lock()
	e.state = next
	e.mu.Unlock()

	e.lastReloadNanos.Store(time.Since(start).Nanoseconds())
	e.totalReloads.Add(1)
}

// Clear removes all rules.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.state = newState(0)
	e.mu.Unlock()
}

// Count returns the number of rules.
func (e *Engine) Count() int {
	e.mu.Lock()
	count := len(e.state.rules)
	e.mu.Unlock()
	return count
}

// Get returns the replacement configured for word.
func (e *Engine) Get(word string) (string, bool) {
	e.mu.Lock()
	repl, ok := e.state.rules[NormalizeWord(word)]
	e.mu.Unlock()
	return repl, ok
}

// Rules returns a snapshot of the table in application order.
func (e *Engine) Rules() []models.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Rule, 0, len(e.state.order))
	for _, w := range e.state.order {
		out = append(out, models.Rule{Word: w, Replacement: e.state.rules[w]})
	}
	return out
}

// Apply runs every rule, in table order, over the running result and
// reports whether any of them fired. A replacement is never re-scanned by
// the rule that produced it but later rules do see it.
func (e *Engine) Apply(message string) (string, bool) {
	start := time.Now()
	defer func() {
		e.lastLookupNanos.Store(time.Since(start).Nanoseconds())
		e.totalLookups.Add(1)
	}()
	if strings.TrimSpace(message) == "" {
		return message, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result := message
	matched := false
	for _, w := range e.state.order {
		m := e.matcherLocked(w)
		if m == nil {
			continue
		}
		out, fired := m.replace(result, e.state.rules[w])
		if !fired {
			continue
		}
		result = out
		matched = true
		e.totalMatches.Add(1)
	}
	return result, matched
}

// matcherLocked returns the cached matcher for w, compiling it on miss.
func (e *Engine) matcherLocked(w string) *matcher {
	if m, ok := e.state.matchers[w]; ok {
		return m
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(w))
	if err != nil {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(w)
	last, _ := utf8.DecodeLastRuneInString(w)
	m := &matcher{re: re, left: isWordRune(first), right: isWordRune(last)}
	e.state.matchers[w] = m
	return m
}

func (m *matcher) replace(s, replacement string) (string, bool) {
	var b strings.Builder
	last, pos := 0, 0
	fired := false
	for pos < len(s) {
		loc := m.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && m.bounded(s, start, end) {
			if !fired {
				b.Grow(len(s))
			}
			b.WriteString(s[last:start])
			b.WriteString(replacement)
			last, pos = end, end
			fired = true
			continue
		}
		// Retry one rune further so an overlapping candidate is not lost.
		_, size := utf8.DecodeRuneInString(s[start:])
		if size == 0 {
			break
		}
		pos = start + size
	}
	if !fired {
		return s, false
	}
	b.WriteString(s[last:])
	return b.String(), true
}

func (m *matcher) bounded(s string, start, end int) bool {
	if m.left && start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if m.right && end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Stats returns current metrics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	rules, compiled := len(e.state.rules), len(e.state.matchers)
	e.mu.Unlock()
	return Stats{
		RuleCount:        int64(rules),
		CompiledCount:    int64(compiled),
		LastLookupNanos:  e.lastLookupNanos.Load(),
		TotalLookups:     e.totalLookups.Load(),
		TotalMatches:     e.totalMatches.Load(),
		LastReloadNanos:  e.lastReloadNanos.Load(),
		TotalReloadCount: e.totalReloads.Load(),
	}
}
