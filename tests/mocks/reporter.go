package mocks

import (
	"sync"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

var _ interfaces.Reporter = (*MockReporter)(nil)

// MockReporter 记录指标上报的 Reporter
type MockReporter struct {
	mu sync.Mutex

	Started  int
	Outcomes []interfaces.SessionOutcome
	Bytes    map[string]int
}

// NewMockReporter 创建 MockReporter
func NewMockReporter() *MockReporter {
	return &MockReporter{Bytes: make(map[string]int)}
}

// SessionStarted 记录会话开始
func (m *MockReporter) SessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started++
}

// SessionFinished 记录会话结束
func (m *MockReporter) SessionFinished(outcome interfaces.SessionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}

// BytesRelayed 记录转发字节数
func (m *MockReporter) BytesRelayed(direction string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Bytes == nil {
		m.Bytes = make(map[string]int)
	}
	m.Bytes[direction] += n
}

// Snapshot 返回当前记录的副本
func (m *MockReporter) Snapshot() (started int, outcomes []interfaces.SessionOutcome, bytes map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bytes = make(map[string]int, len(m.Bytes))
	for k, v := range m.Bytes {
		bytes[k] = v
	}
	return m.Started, append([]interfaces.SessionOutcome(nil), m.Outcomes...), bytes
}
