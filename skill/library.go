package skill

import (
	"context"
	"strings"
	"sync"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
)

// CategorySeparator joins category groups in composed instruction text.
const CategorySeparator = "\n\n---\n\n"

// Library is the process-wide skill registry with a memoizing text cache.
// Registration happens once at startup; afterwards the library is read-mostly
// and safe for concurrent use across sessions. ClearCache is an
// administrative operation, not part of normal request flow.
type Library struct {
	source Source
	logger logging.Logger

	mu     sync.RWMutex
	skills map[string]Skill
	cache  map[string]string
}

// NewLibrary constructs an empty library backed by the given source.
func NewLibrary(source Source, logger logging.Logger) *Library {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Library{
		source: source,
		logger: logger,
		skills: make(map[string]Skill),
		cache:  make(map[string]string),
	}
}

// Register adds skills to the registry. Re-registering an id with a different
// category or locator is a configuration defect.
func (l *Library) Register(skills ...Skill) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range skills {
		if existing, ok := l.skills[s.ID]; ok && existing != s {
			return core.NewConfigurationError("skill %q registered twice with conflicting definitions", s.ID)
		}
		l.skills[s.ID] = s
	}
	return nil
}

// Get returns the registered skill for id.
func (l *Library) Get(id string) (Skill, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.skills[id]
	if !ok {
		return Skill{}, &UnknownSkillError{ID: id}
	}
	return s, nil
}

// Load returns the fragment text for id, fetching from the source on first
// use and memoizing afterwards. Fails with UnknownSkillError for ids that
// were never registered.
func (l *Library) Load(ctx context.Context, id string) (string, error) {
	l.mu.RLock()
	s, registered := l.skills[id]
	text, cached := l.cache[id]
	l.mu.RUnlock()

	if !registered {
		return "", &UnknownSkillError{ID: id}
	}
	if cached {
		return text, nil
	}

	text = l.source.GetPrompt(ctx, s.Locator)

	l.mu.Lock()
	// Another loader may have raced us here; first write wins so the cached
	// text never silently changes within a process lifetime.
	if prior, ok := l.cache[id]; ok {
		text = prior
	} else {
		l.cache[id] = text
	}
	l.mu.Unlock()

	l.logger.Debug("skill.load", "id", id, "bytes", len(text))
	return text, nil
}

// Compose loads every id and assembles the instruction text: fragments are
// grouped by category in the fixed order personality, mode-behavior,
// domain-knowledge, tool-behavior, groups are joined with CategorySeparator,
// and within a category the caller-supplied id order is preserved. An empty
// id list composes to the empty string; any unknown id fails the whole
// composition.
func (l *Library) Compose(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}

	type loaded struct {
		text string
		err  error
	}
	results := make([]loaded, len(ids))
	cats := make([]Category, len(ids))

	// Order of loading is irrelevant, so fetch in parallel; output order is
	// reconstructed below from the caller's id order.
	var wg sync.WaitGroup
	for i, id := range ids {
		s, err := l.Get(id)
		if err != nil {
			return "", err
		}
		cats[i] = s.Category
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			text, err := l.Load(ctx, id)
			results[i] = loaded{text: text, err: err}
		}(i, id)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return "", r.err
		}
	}

	groups := make(map[Category][]string)
	for i := range ids {
		if results[i].text == "" {
			continue
		}
		groups[cats[i]] = append(groups[cats[i]], results[i].text)
	}

	var sections []string
	for _, cat := range composeOrder {
		if frags := groups[cat]; len(frags) > 0 {
			sections = append(sections, strings.Join(frags, "\n\n"))
		}
	}
	return strings.Join(sections, CategorySeparator), nil
}

// ClearCache discards all memoized text; the next Load of each id re-fetches
// from the source.
func (l *Library) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]string)
	l.logger.Info("skill.cache.cleared")
}
