package vad

// VoteWindow 固定容量的语音投票环形窗口
type VoteWindow struct {
	votes []bool
	next  int
	size  int
	count int
}

// NewVoteWindow 创建窗口，capacity<=0 时取10
func NewVoteWindow(capacity int) *VoteWindow {
	if capacity <= 0 {
		capacity = 10
	}
	return &VoteWindow{votes: make([]bool, capacity)}
}

// Push 写入一票，窗口满时挤掉最旧的一票
func (w *VoteWindow) Push(speech bool) {
	if w.size == len(w.votes) {
		if w.votes[w.next] {
			w.count--
		}
	} else {
		w.size++
	}
	w.votes[w.next] = speech
	if speech {
		w.count++
	}
	w.next = (w.next + 1) % len(w.votes)
}

// Count 窗口内语音票数
func (w *VoteWindow) Count() int { return w.count }

// Len 窗口内总票数
func (w *VoteWindow) Len() int { return w.size }

// Cap 窗口容量
func (w *VoteWindow) Cap() int { return len(w.votes) }

// Reset 清空窗口
func (w *VoteWindow) Reset() {
	for i := range w.votes {
		w.votes[i] = false
	}
	w.next, w.size, w.count = 0, 0, 0
}
