package page

import (
	"maps"
	"sync"
)

// Consent mode signal keys polled by vendor tags.
const (
	AnalyticsStorage       = "analytics_storage"
	AdStorage              = "ad_storage"
	AdUserData             = "ad_user_data"
	AdPersonalization      = "ad_personalization"
	FunctionalityStorage   = "functionality_storage"
	PersonalizationStorage = "personalization_storage"

	Granted = "granted"
	Denied  = "denied"
)

// ConsentModeKeys lists every signal key.
var ConsentModeKeys = []string{
	AnalyticsStorage,
	AdStorage,
	AdUserData,
	AdPersonalization,
	FunctionalityStorage,
	PersonalizationStorage,
}

// ConsentMode is the global grant/deny signal. It starts fully denied.
type ConsentMode struct {
	mu     sync.RWMutex
	state  map[string]string
	update int
}

func NewConsentMode() *ConsentMode {
	state := make(map[string]string, len(ConsentModeKeys))
	for _, k := range ConsentModeKeys {
		state[k] = Denied
	}
	return &ConsentMode{state: state}
}

// Update overwrites the given keys; last writer wins.
func (c *ConsentMode) Update(values map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.state, values)
	c.update++
}

// State returns the current value for key, Denied when unknown.
func (c *ConsentMode) State(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.state[key]; ok {
		return v
	}
	return Denied
}

// IsGranted reports whether key is granted.
func (c *ConsentMode) IsGranted(key string) bool {
	return c.State(key) == Granted
}

// Snapshot returns a copy of the signal.
func (c *ConsentMode) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.state)
}

// Updates counts how many times the signal was updated.
func (c *ConsentMode) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.update
}
