package llm

import (
	"context"
	"fmt"
	"sync"
)

// Manager is a purpose-keyed registry of LLM clients: the fixer calls
// PurposeCode to rewrite a failing file, the evaluator calls PurposeJudge
// to grade a rubric; both clients are registered by the CLI wiring. Gemini is a stateless REST API
// with no model to load or idle-unload, so the registry is just a map
// lookup plus the provider's own retry/availability handling.
type Manager struct {
	clients map[Purpose]Client
	configs map[Purpose]Config
	mu      sync.RWMutex
}

// NewManager creates a new LLM manager
func NewManager() *Manager {
	return &Manager{
		clients: make(map[Purpose]Client),
		configs: make(map[Purpose]Config),
	}
}

// RegisterLLM registers an LLM for a specific purpose
func (m *Manager) RegisterLLM(purpose Purpose, config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var client Client
	var err error

	switch config.Provider {
	case "gemini":
		client, err = NewGeminiClient(context.Background(), config)
	default:
		return fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	m.configs[purpose] = config
	m.clients[purpose] = client
	return nil
}

// GetClient returns the LLM client registered for a specific purpose
func (m *Manager) GetClient(purpose Purpose) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[purpose]
	if !ok {
		return nil, fmt.Errorf("no LLM available for purpose: %s", purpose)
	}
	return client, nil
}

// Generate sends a request to the LLM registered for purpose.
func (m *Manager) Generate(ctx context.Context, purpose Purpose, req Request) (*Response, error) {
	client, err := m.GetClient(purpose)
	if err != nil {
		return nil, err
	}

	if !client.IsAvailable(ctx) {
		return nil, fmt.Errorf("LLM for %s is not available", purpose)
	}

	return client.Generate(ctx, req)
}

// GetConfig returns the configuration registered for a specific purpose
func (m *Manager) GetConfig(purpose Purpose) (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config, ok := m.configs[purpose]
	return config, ok
}
