package provider

import (
	"context"
	"encoding/base64"
	"strings"
)

// MockCompleter echoes a canned reply; used when no Groq key is configured
// and in tests.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (m *MockCompleter) Name() string { return "mock" }

func (m *MockCompleter) Complete(_ context.Context, _ string, prompt string) (string, error) {
	// Reply with the tail of the prompt so conversations remain traceable.
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := ""
	for _, l := range lines {
		if strings.HasPrefix(l, "User: ") {
			last = strings.TrimPrefix(l, "User: ")
		}
	}
	if last == "" {
		last = "hello"
	}
	return "mock reply: " + last, nil
}

// MockImageGenerator returns a 1x1 placeholder; used when no Stability key is
// configured and in tests.
type MockImageGenerator struct{}

func NewMockImageGenerator() *MockImageGenerator { return &MockImageGenerator{} }

func (m *MockImageGenerator) Name() string { return "mock" }

func (m *MockImageGenerator) Generate(_ context.Context, req ImageRequest) (ImageResult, error) {
	payload := "mock image for: " + req.Prompt
	return ImageResult{Base64: base64.StdEncoding.EncodeToString([]byte(payload))}, nil
}
