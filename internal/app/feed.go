package app

import (
	"sync"
	"time"

	"quiz-engine/internal/engine/stats"
)

// LeaderboardUpdate is a snapshot pushed to subscribers when a quiz's ranking changes.
type LeaderboardUpdate struct {
	QuizID    string                   `json:"quizId"`
	Entries   []stats.LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// LeaderboardFeed fans leaderboard updates out to per-quiz subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	latest      map[string]LeaderboardUpdate
	subscribers map[string]map[chan LeaderboardUpdate]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		latest:      make(map[string]LeaderboardUpdate),
		subscribers: make(map[string]map[chan LeaderboardUpdate]struct{}),
	}
}

// Subscribe returns a channel that receives updates for quizID, primed with the latest
// snapshot when one exists. The caller must invoke cancel to avoid leaks.
func (f *LeaderboardFeed) Subscribe(quizID string) (<-chan LeaderboardUpdate, func()) {
	ch := make(chan LeaderboardUpdate, 8)

	f.mu.Lock()
	if f.subscribers[quizID] == nil {
		f.subscribers[quizID] = make(map[chan LeaderboardUpdate]struct{})
	}
	f.subscribers[quizID][ch] = struct{}{}
	if initial, ok := f.latest[quizID]; ok {
		ch <- initial
	}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[quizID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish stores update as the latest snapshot and delivers it to every subscriber.
func (f *LeaderboardFeed) Publish(update LeaderboardUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest[update.QuizID] = update
	for ch := range f.subscribers[update.QuizID] {
		select {
		case ch <- update:
		default:
			// Slow subscriber: replace its oldest pending update with the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

// Subscribers reports how many listeners a quiz currently has.
func (f *LeaderboardFeed) Subscribers(quizID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
