package server

import (
	"sync/atomic"
	"time"
)

// Stats は処理した接続の統計
type Stats struct {
	startedAt   time.Time
	connections atomic.Int64
	bytesSent   atomic.Int64
	byKind      [kindCount]atomic.Int64
}

// StatsSnapshot はある時点の統計のコピー
type StatsSnapshot struct {
	StartedAt   time.Time        `json:"started_at"`
	Connections int64            `json:"connections"`
	BytesSent   int64            `json:"bytes_sent"`
	Results     map[string]int64 `json:"results"`
}

func newStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// Record は1接続の結果を統計に加える
func (s *Stats) Record(r Result) {
	s.connections.Add(1)
	s.bytesSent.Add(r.Bytes)
	if r.Kind >= 0 && r.Kind < kindCount {
		s.byKind[r.Kind].Add(1)
	}
}

// Snapshot は現在の統計を返す
func (s *Stats) Snapshot() StatsSnapshot {
	results := make(map[string]int64, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		results[k.String()] = s.byKind[k].Load()
	}

	return StatsSnapshot{
		StartedAt:   s.startedAt,
		Connections: s.connections.Load(),
		BytesSent:   s.bytesSent.Load(),
		Results:     results,
	}
}
