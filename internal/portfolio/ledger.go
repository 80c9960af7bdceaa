package portfolio

import (
	"fmt"
	"sync"

	"agentdesk/internal/profile"
)

// DefaultStartingCapital 每个 agent 的初始资金（USD）。
const DefaultStartingCapital = 10000.0

type book struct {
	mu sync.Mutex
	p  *Portfolio
}

// Ledger 持有所有 agent 的账本，同一 agent 的修改互斥，不同 agent 可并行。
type Ledger struct {
	startingCapital float64
	order           []string
	books           map[string]*book
}

func NewLedger(startingCapital float64, agentIDs []string) *Ledger {
	if startingCapital <= 0 {
		startingCapital = DefaultStartingCapital
	}
	l := &Ledger{startingCapital: startingCapital, books: make(map[string]*book, len(agentIDs))}
	for _, id := range agentIDs {
		if _, ok := l.books[id]; ok {
			continue
		}
		l.order = append(l.order, id)
		l.books[id] = &book{p: New(id, startingCapital)}
	}
	return l
}

func (l *Ledger) StartingCapital() float64 { return l.startingCapital }

func (l *Ledger) AgentIDs() []string { return append([]string(nil), l.order...) }

func (l *Ledger) book(agentID string) (*book, error) {
	b, ok := l.books[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no portfolio", profile.ErrUnknownAgent, agentID)
	}
	return b, nil
}

// With 在持有该 agent 账本锁的情况下执行 fn。fn 内不得再调用同一 agent 的 With。
func (l *Ledger) With(agentID string, fn func(*Portfolio) error) error {
	b, err := l.book(agentID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.p)
}

// Snapshot 返回账本的只读副本。
func (l *Ledger) Snapshot(agentID string) (*Portfolio, error) {
	b, err := l.book(agentID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.p.clone(), nil
}

// Snapshots 按注册顺序返回全部账本副本。
func (l *Ledger) Snapshots() []*Portfolio {
	out := make([]*Portfolio, 0, len(l.order))
	for _, id := range l.order {
		b := l.books[id]
		b.mu.Lock()
		out = append(out, b.p.clone())
		b.mu.Unlock()
	}
	return out
}
