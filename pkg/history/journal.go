package history

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	RoleUser      = "主人说"
	RoleAssistant = "我说"

	// SystemNoticeMarker 系统通知不计入对话记录
	SystemNoticeMarker = "$@$系统通知"
)

// Line 一条对话记录
type Line struct {
	At   time.Time
	Role string
	Text string
}

func (l Line) String() string {
	return fmt.Sprintf("[%s] %s：%s", l.At.Format("2006-01-02 15:04:05"), l.Role, l.Text)
}

type conversation struct {
	mu      sync.Mutex
	lines   []Line
	touched time.Time
}

// Journal 按用户保存最近的对话，超出容量时淘汰最久未用的用户
type Journal struct {
	cache    *lru.Cache[string, *conversation]
	maxLines int
	now      func() time.Time
}

// New 创建对话记录
func New(maxSessions, maxLines int) (*Journal, error) {
	if maxSessions <= 0 {
		maxSessions = 1024
	}
	if maxLines <= 0 {
		maxLines = 200
	}
	cache, err := lru.New[string, *conversation](maxSessions)
	if err != nil {
		return nil, err
	}
	return &Journal{cache: cache, maxLines: maxLines, now: time.Now}, nil
}

// Append 追加一条记录，超出条数上限时丢弃最旧的
func (j *Journal) Append(key, role, text string) {
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, SystemNoticeMarker) {
		return
	}
	now := j.now()

	conv, ok := j.cache.Get(key)
	if !ok {
		fresh := &conversation{}
		// 并发首次写入时以先写入者为准
		if prev, found, _ := j.cache.PeekOrAdd(key, fresh); found {
			conv = prev
		} else {
			conv = fresh
		}
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.lines = append(conv.lines, Line{At: now, Role: role, Text: text})
	if over := len(conv.lines) - j.maxLines; over > 0 {
		conv.lines = append([]Line(nil), conv.lines[over:]...)
	}
	conv.touched = now
}

// Lines 返回记录副本
func (j *Journal) Lines(key string) []Line {
	conv, ok := j.cache.Get(key)
	if !ok {
		return nil
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]Line, len(conv.lines))
	copy(out, conv.lines)
	return out
}

// Content 逐行格式化的对话记录
func (j *Journal) Content(key string) string {
	lines := j.Lines(key)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

// Prune 删除超过 idle 未更新的对话，返回删除数
func (j *Journal) Prune(idle time.Duration) int {
	cutoff := j.now().Add(-idle)
	removed := 0
	for _, key := range j.cache.Keys() {
		conv, ok := j.cache.Peek(key)
		if !ok {
			continue
		}
		conv.mu.Lock()
		stale := conv.touched.Before(cutoff)
		conv.mu.Unlock()
		if stale && j.cache.Remove(key) {
			removed++
		}
	}
	return removed
}

// Len 当前保存的对话数
func (j *Journal) Len() int {
	return j.cache.Len()
}
