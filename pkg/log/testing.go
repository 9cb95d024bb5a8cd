package log

import (
	"bytes"
	"strings"
	"sync"
)

// TestLoggerProvider implements LoggerProvider for tests. Records are written
// as JSON lines into an in-memory buffer that the test can inspect.
type TestLoggerProvider struct {
	provider *ZerologProvider
	buffer   *syncBuffer
}

// NewTestLoggerProvider creates a test provider and returns the buffer that
// receives all emitted records.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	buf := &syncBuffer{}
	return &TestLoggerProvider{
		provider: NewZerologProviderWithWriter(buf, level),
		buffer:   buf,
	}, &buf.b
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *TestLoggerProvider) GetLogger() Logger {
	return p.provider.GetLogger()
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.provider.GetLoggerWithName(name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.provider.SetLevel(level)
}

// Contains reports whether any emitted record contains the substring.
func (p *TestLoggerProvider) Contains(substr string) bool {
	return strings.Contains(p.buffer.String(), substr)
}

// syncBuffer guards the buffer for concurrent writers.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
