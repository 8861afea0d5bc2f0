package storage

import (
	"net/http"
	"sync"
)

// MemoryCookieJar is an in-process cookie jar. Written records every
// Set-Cookie so tests can assert on attributes.
type MemoryCookieJar struct {
	mu      sync.Mutex
	cookies map[string]*http.Cookie
	written []*http.Cookie
}

func NewMemoryCookieJar() *MemoryCookieJar {
	return &MemoryCookieJar{cookies: make(map[string]*http.Cookie)}
}

func (j *MemoryCookieJar) Cookie(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

func (j *MemoryCookieJar) SetCookie(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := *c
	j.written = append(j.written, &cp)
	if c.MaxAge < 0 {
		delete(j.cookies, c.Name)
		return
	}
	j.cookies[c.Name] = &cp
}

// Written returns every cookie written so far.
func (j *MemoryCookieJar) Written() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*http.Cookie(nil), j.written...)
}

// EndSession drops session cookies, the way a browser does on close.
func (j *MemoryCookieJar) EndSession() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for name, c := range j.cookies {
		if c.MaxAge == 0 && c.Expires.IsZero() {
			delete(j.cookies, name)
		}
	}
}

// MemoryLocalStore is an in-process localStorage. A positive quota bounds the
// total bytes stored; a disabled store fails every call.
type MemoryLocalStore struct {
	mu       sync.Mutex
	items    map[string]string
	quota    int
	disabled bool
}

func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{items: make(map[string]string)}
}

// WithQuota limits the store to n bytes of keys plus values.
func (s *MemoryLocalStore) WithQuota(n int) *MemoryLocalStore {
	s.quota = n
	return s
}

// Disable makes every subsequent call fail with ErrDisabled.
func (s *MemoryLocalStore) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

func (s *MemoryLocalStore) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return "", false, ErrDisabled
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryLocalStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return ErrDisabled
	}
	if s.quota > 0 {
		used := 0
		for k, v := range s.items {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > s.quota {
			return ErrQuotaExceeded
		}
	}
	s.items[key] = value
	return nil
}

func (s *MemoryLocalStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return ErrDisabled
	}
	delete(s.items, key)
	return nil
}

// Clear empties the store.
func (s *MemoryLocalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
}
