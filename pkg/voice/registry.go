package voice

import (
	"sort"
	"sync"
)

// Registry 当前打开的连接集合
// 增删在写锁下进行，广播先取快照再逐个发送，发送过程不持锁
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove 返回是否存在
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot 按建立时间排序的会话副本
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// BroadcastChat 向所有存活连接推送 chat 消息，返回推送数
func (r *Registry) BroadcastChat(reply string) int {
	sent := 0
	for _, s := range r.Snapshot() {
		if !s.writer.Alive() {
			continue
		}
		if err := s.writer.SendChat(reply); err == nil {
			sent++
		}
	}
	return sent
}
