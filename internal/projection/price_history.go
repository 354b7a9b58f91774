package projection

import "sync"

// PricePoint is one post-trade spot price observation.
type PricePoint struct {
	Token     string
	Price     uint64
	Sequence  int64
	Timestamp int64
}

// PriceHistoryProjection maintains a bounded in-memory ring of recent price
// points for chart endpoints. Older history lives in launch.trades.
type PriceHistoryProjection struct {
	mu       sync.RWMutex
	capacity int
	points   []PricePoint
	next     int
	filled   bool
}

func NewPriceHistoryProjection(capacity int) *PriceHistoryProjection {
	return &PriceHistoryProjection{
		capacity: capacity,
		points:   make([]PricePoint, capacity),
	}
}

// AddPoint records a price observation.
func (p *PriceHistoryProjection) AddPoint(point PricePoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.points[p.next] = point
	p.next++
	if p.next == p.capacity {
		p.next = 0
		p.filled = true
	}
}

// QueryByToken returns the most recent price points for a token,
// newest first.
func (p *PriceHistoryProjection) QueryByToken(token string, limit int) []PricePoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	size := p.next
	if p.filled {
		size = p.capacity
	}

	result := make([]PricePoint, 0, limit)
	for i := 1; i <= size && len(result) < limit; i++ {
		idx := p.next - i
		if idx < 0 {
			idx += p.capacity
		}
		if p.points[idx].Token == token {
			result = append(result, p.points[idx])
		}
	}
	return result
}
