package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manager 是进程内后台任务的生命周期协调器。
// 它由上层模块（shutdown）创建和持有，并向各个后台任务分发句柄(Handle)。
// 除了常驻服务（健康检查器）之外，合并抓取产生的临时Goroutine
// 也会注册到这里，保证停机时等待进行中的上游同步事务提交完毕。
type Manager struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建一个新的生命周期管理器。
func NewManager() *Manager {
	m := &Manager{
		services: make(map[string]int),
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m
}

// NewServiceHandle 为一个后台任务创建一个新的生命周期句柄(Handle)。
// 同名任务可以注册多次（例如每个Tracker的抓取Goroutine共用一个名字），
// 管理器按计数跟踪它们。
func (m *Manager) NewServiceHandle(name string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.services[name]++
	m.wg.Add(1)

	var once sync.Once
	return &Handle{
		ctx: m.ctx,
		Close: func() {
			once.Do(func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				m.services[name]--
				if m.services[name] <= 0 {
					delete(m.services, name)
				}
				m.wg.Done()
			})
		},
	}
}

// Shutdown 向所有持有句柄的任务广播停机信号。
func (m *Manager) Shutdown() {
	fmt.Println("生命周期管理器: 广播停机信号...")
	m.cancel()
}

// WaitWithTimeout 等待所有已注册的任务完成，直到指定的超时。
// 超时后返回仍未退出的任务名列表。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	doneChan := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(doneChan)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-doneChan:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		remaining := make([]string, 0, len(m.services))
		for name := range m.services {
			remaining = append(remaining, name)
		}
		return remaining
	}
}
