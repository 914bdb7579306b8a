package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response  string
	Err       error
	Embedding []float32
	EmbedErr  error

	Prompts []string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, m.Err
}

func (m *MockClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	return m.Embedding, m.EmbedErr
}
