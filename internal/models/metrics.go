package models

import "go.uber.org/atomic"

// Stats 定義快取操作統計
type Stats struct {
	Hits    *atomic.Int64
	Misses  *atomic.Int64
	Sets    *atomic.Int64
	Expired *atomic.Int64
	Swept   *atomic.Int64
}

// StatsSnapshot 是 Stats 在某一時刻的值
type StatsSnapshot struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Expired int64 `json:"expired"`
	Swept   int64 `json:"swept"`
}

// NewStats 創建新的 Stats 實例
func NewStats() *Stats {
	return &Stats{
		Hits:    atomic.NewInt64(0),
		Misses:  atomic.NewInt64(0),
		Sets:    atomic.NewInt64(0),
		Expired: atomic.NewInt64(0),
		Swept:   atomic.NewInt64(0),
	}
}

// Snapshot 讀取目前的統計值
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:    s.Hits.Load(),
		Misses:  s.Misses.Load(),
		Sets:    s.Sets.Load(),
		Expired: s.Expired.Load(),
		Swept:   s.Swept.Load(),
	}
}
