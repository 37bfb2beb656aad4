package statemachine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultHistoryLimit 默认保留的历史记录条数
const DefaultHistoryLimit = 1024

// History 一次转换的记录
type History struct {
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Message   string    `json:"message"`
	Redirects int       `json:"redirects,omitempty"`
	Committed bool      `json:"committed"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryRecorder 以观察者方式记录转换历史，超过上限时丢弃最早的记录
type HistoryRecorder struct {
	mu      sync.RWMutex
	limit   int
	history []History
	now     func() time.Time
}

// NewHistoryRecorder 创建历史记录器，limit <= 0 时使用默认值
func NewHistoryRecorder(limit int) *HistoryRecorder {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryRecorder{
		limit:   limit,
		history: make([]History, 0),
		now:     time.Now,
	}
}

// Observer 返回可注册到状态机的观察者
func (r *HistoryRecorder) Observer() Observer {
	return r.Record
}

// Record 记录一次转换
func (r *HistoryRecorder) Record(ev TransitionEvent) {
	h := History{
		From:      nodeName(ev.From),
		Message:   ev.Message.String(),
		Redirects: ev.Redirects,
		Committed: ev.Committed,
		Timestamp: r.now(),
	}
	if ev.To != nil {
		h.To = ev.To.Name()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) >= r.limit {
		r.history = append(r.history[:0], r.history[1:]...)
	}
	r.history = append(r.history, h)
}

// Records 返回历史记录副本
func (r *HistoryRecorder) Records() []History {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]History{}, r.history...)
}

// Len 返回记录条数
func (r *HistoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

// Clear 清空历史记录
func (r *HistoryRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = make([]History, 0)
}

// MarshalJSON 序列化历史记录
func (r *HistoryRecorder) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Records())
}

// Snapshot 当前状态快照
type Snapshot struct {
	State     string         `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateSnapshot 创建当前状态快照，状态机未初始化时返回 nil
func (m *Machine) CreateSnapshot(metadata map[string]any) *Snapshot {
	cur, ok := m.Current()
	if !ok {
		return nil
	}
	return &Snapshot{
		State:     cur.Name(),
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// RestoreSnapshot 恢复快照中的当前状态，该状态必须仍在图中
func (m *Machine) RestoreSnapshot(snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("restore snapshot: %w", ErrNilState)
	}
	return m.SetCurrent(snapshot.State)
}

// UnmarshalSnapshot 解析 JSON 格式的快照
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}
