package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one conversation transcript, private to a tenant workspace.
type Session struct {
	Key       string    `json:"key"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the transcript.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// History returns up to maxMessages of the most recent entries.
func (s *Session) History(maxMessages int) []Message {
	msgs := s.Messages
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Manager stores session transcripts as JSONL files under one tenant
// workspace. A Manager is created per binding, so sessions from different
// tenants never share a cache.
type Manager struct {
	Workspace   string
	SessionsDir string

	mu    sync.Mutex
	cache map[string]*Session
}

// NewManager creates a session manager rooted at a tenant workspace.
func NewManager(workspace string) *Manager {
	sessionsDir := filepath.Join(workspace, "sessions")
	os.MkdirAll(sessionsDir, 0755)

	return &Manager{
		Workspace:   workspace,
		SessionsDir: sessionsDir,
		cache:       make(map[string]*Session),
	}
}

func (m *Manager) sessionPath(key string) string {
	safeKey := strings.ReplaceAll(key, ":", "_")
	safeKey = strings.ReplaceAll(safeKey, string(filepath.Separator), "_")
	return filepath.Join(m.SessionsDir, safeKey+".jsonl")
}

// GetOrCreate loads an existing session or starts a new one.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.cache[key]; ok {
		return session
	}

	session := m.load(key)
	if session == nil {
		session = NewSession(key)
	}
	m.cache[key] = session
	return session
}

func (m *Manager) load(key string) *Session {
	file, err := os.Open(m.sessionPath(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	session := NewSession(key)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		session.Messages = append(session.Messages, msg)
	}
	if len(session.Messages) > 0 {
		session.CreatedAt = session.Messages[0].Timestamp
		session.UpdatedAt = session.Messages[len(session.Messages)-1].Timestamp
	}
	return session
}

// Save writes the transcript back to disk.
func (m *Manager) Save(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache[session.Key] = session

	file, err := os.Create(m.sessionPath(session.Key))
	if err != nil {
		return err
	}
	defer file.Close()

	for _, msg := range session.Messages {
		line, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops a session from cache and disk.
func (m *Manager) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, key)
	err := os.Remove(m.sessionPath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
