package genai

import "sync"

// KeySource hands out the key to use for the next request.
type KeySource interface {
	Key() string
}

// KeyRing tracks the API key. A key selected at runtime wins over the one
// from the environment. Requests read the key fresh so a re-selection
// applies to the next call without rebuilding the client.
type KeyRing struct {
	mu       sync.RWMutex
	envKey   string
	selected string
	onPrompt func()
}

func NewKeyRing(envKey string) *KeyRing {
	return &KeyRing{envKey: envKey}
}

func (k *KeyRing) Key() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.selected != "" {
		return k.selected
	}
	return k.envKey
}

func (k *KeyRing) HasAPIKeySelected() bool {
	return k.Key() != ""
}

// Select stores a runtime key. An empty key clears the selection.
func (k *KeyRing) Select(key string) {
	k.mu.Lock()
	k.selected = key
	k.mu.Unlock()
}

// Source names where the current key comes from: "selected", "environment" or "none".
func (k *KeyRing) Source() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	switch {
	case k.selected != "":
		return "selected"
	case k.envKey != "":
		return "environment"
	}
	return "none"
}

// OnPrompt sets the hook run by PromptAPIKeySelection.
func (k *KeyRing) OnPrompt(fn func()) {
	k.mu.Lock()
	k.onPrompt = fn
	k.mu.Unlock()
}

// PromptAPIKeySelection asks the front end to pick a key. Without a hook it
// does nothing.
func (k *KeyRing) PromptAPIKeySelection() {
	k.mu.RLock()
	fn := k.onPrompt
	k.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
