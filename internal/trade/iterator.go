package trade

import "agentdesk/internal/scoring"

// DefaultBufferFactor 候选缓冲 = BufferFactor × maxTrades。
const DefaultBufferFactor = 2

// CandidateIterator 按排名顺序遍历有限的候选缓冲，接受数达到 maxTrades 即停止。
type CandidateIterator struct {
	ranked    []scoring.ScoredMarket
	next      int
	accepted  int
	maxTrades int
}

// NewCandidateIterator 截取前 bufferFactor×maxTrades 个候选；ranked 需已排序。
func NewCandidateIterator(ranked []scoring.ScoredMarket, maxTrades, bufferFactor int) *CandidateIterator {
	if maxTrades < 0 {
		maxTrades = 0
	}
	if bufferFactor < 1 {
		bufferFactor = DefaultBufferFactor
	}
	limit := maxTrades * bufferFactor
	if limit > len(ranked) {
		limit = len(ranked)
	}
	return &CandidateIterator{ranked: ranked[:limit], maxTrades: maxTrades}
}

// Done 是停止条件：配额已满或缓冲耗尽。
func (it *CandidateIterator) Done() bool {
	return it.accepted >= it.maxTrades || it.next >= len(it.ranked)
}

// Next 返回下一个候选；Done 为 true 时 ok=false。
func (it *CandidateIterator) Next() (scoring.ScoredMarket, bool) {
	if it.Done() {
		return scoring.ScoredMarket{}, false
	}
	sm := it.ranked[it.next]
	it.next++
	return sm, true
}

// Accept 记录一笔被接受的交易。
func (it *CandidateIterator) Accept() { it.accepted++ }

func (it *CandidateIterator) Accepted() int { return it.accepted }

// Buffered 返回缓冲内的候选数。
func (it *CandidateIterator) Buffered() int { return len(it.ranked) }
