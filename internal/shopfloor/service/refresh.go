package service

import "sync"

// RefreshGate 刷新闸门:合并并发触发的全量刷新。
// 刷新进行中到达的触发者不各自再跑一遍,而是挂到当前批次上等待;
// 进行中若有新触发到达,收尾时只补跑一遍,保证结果不落后于
// 最后一次触发之前的状态。
type RefreshGate struct {
	mu      sync.Mutex
	running bool
	pending bool
	waiters []chan error
}

// NewRefreshGate 创建刷新闸门
func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// Do 执行一次受闸门保护的刷新。
// 空闲时由调用方亲自执行 fn;已有刷新在跑时,调用方登记为等待者,
// 拿到补跑批次的结果后返回。
func (g *RefreshGate) Do(fn func() error) error {
	g.mu.Lock()
	if g.running {
		ch := make(chan error, 1)
		g.waiters = append(g.waiters, ch)
		g.pending = true
		g.mu.Unlock()
		return <-ch
	}
	g.running = true
	g.mu.Unlock()

	err := fn()

	g.mu.Lock()
	for g.pending {
		g.pending = false
		g.mu.Unlock()
		err = fn()
		g.mu.Lock()
	}
	waiters := g.waiters
	g.waiters = nil
	g.running = false
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}
