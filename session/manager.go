package session

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
)

// Manager 按 id 管理活跃会话。
// 推理后端只维护一个当前图像，共用同一连接的会话数需受 maxSessions 限制。
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	logger      *zap.Logger
}

// NewManager maxSessions 为 0 表示不限
func NewManager(logger *zap.Logger, maxSessions int) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: max(maxSessions, 0),
		logger:      logger,
	}
}

// Add 登记会话，达到上限时返回 ErrSessionLimit，会话不被关闭
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		m.logger.Warn("session limit reached",
			zap.String("session", s.ID()), zap.Int("max_sessions", m.maxSessions))
		return ErrSessionLimit
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.logger.Info("session created", zap.String("session", s.ID()))
	return nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove 关闭并移除会话
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.logger.Info("session closed", zap.String("session", id))
	return s.Close()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close 关闭全部会话
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for id, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Warn("failed to close session", zap.String("session", id), zap.Error(err))
		}
	}
}
