package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/provider/embeddings"
	"github.com/voxjot/voxjot/pkg/provider/speech"
)

// ErrBackendNotRegistered is returned by Create* methods when no factory has
// been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// Registry maps backend names to their constructor functions for each backend
// kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	speech     map[string]func(SpeechConfig) (speech.Recognizer, error)
	assist     map[string]func(AssistBackend) (assist.Provider, error)
	embeddings map[string]func(AssistBackend) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		speech:     make(map[string]func(SpeechConfig) (speech.Recognizer, error)),
		assist:     make(map[string]func(AssistBackend) (assist.Provider, error)),
		embeddings: make(map[string]func(AssistBackend) (embeddings.Provider, error)),
	}
}

// RegisterSpeech registers a recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSpeech(name string, factory func(SpeechConfig) (speech.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// RegisterAssist registers an assist backend factory under name.
func (r *Registry) RegisterAssist(name string, factory func(AssistBackend) (assist.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assist[name] = factory
}

// RegisterEmbeddings registers an embeddings backend factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(AssistBackend) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateSpeech instantiates the recognizer registered under cfg.Backend.
// Returns [ErrBackendNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateSpeech(cfg SpeechConfig) (speech.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.speech[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

// CreateAssist instantiates the assist backend registered under entry.Name.
func (r *Registry) CreateAssist(entry AssistBackend) (assist.Provider, error) {
	r.mu.RLock()
	factory, ok := r.assist[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: assist/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbeddings instantiates the embeddings backend registered under
// entry.Name.
func (r *Registry) CreateEmbeddings(entry AssistBackend) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}
