package cache

import (
	"context"
	"regexp"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. go-cache expiry is disabled
// and no janitor runs, so stale entries live until deleted explicitly.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, nil
	}
	e := v.(Entry)
	return &e, nil
}

func (m *MemoryStore) Set(_ context.Context, e *Entry) error {
	cp := *e
	cp.Value = append([]byte(nil), e.Value...)
	m.c.Set(e.Key, cp, gocache.NoExpiration)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil, err
	}
	var keys []string
	for k := range m.c.Items() {
		if re.MatchString(k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) (int, error) {
	n := 0
	for _, k := range keys {
		if _, ok := m.c.Get(k); ok {
			m.c.Delete(k)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored entries, fresh or stale.
func (m *MemoryStore) Len() int {
	return m.c.ItemCount()
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
