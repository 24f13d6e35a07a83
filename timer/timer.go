// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a scheduled callback. Interval > 0 makes it repeat.
type Task struct {
	ID       int64
	Deadline time.Time
	Interval time.Duration
	Run      func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Deadline.Before(q[j].Deadline)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[:n-1]
	return task
}

// Manager schedules one-shot and repeating callbacks on a heap, checked
// at the given resolution. Callbacks run on the manager's goroutine, in
// deadline order.
type Manager struct {
	mu         sync.Mutex
	queue      taskQueue
	nextID     int64
	resolution time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewManager(resolution time.Duration) *Manager {
	if resolution <= 0 {
		resolution = 100 * time.Millisecond
	}
	m := &Manager{
		queue:      make(taskQueue, 0),
		nextID:     1,
		resolution: resolution,
		stop:       make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.run()
	return m
}

// Schedule registers run to fire after delay, then every interval when
// interval > 0. Returns the task id for Cancel.
func (m *Manager) Schedule(delay, interval time.Duration, run func()) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &Task{
		ID:       m.nextID,
		Deadline: time.Now().Add(delay),
		Interval: interval,
		Run:      run,
	}
	m.nextID++
	heap.Push(&m.queue, task)
	return task.ID
}

// Cancel removes a pending task. Unknown ids are ignored.
func (m *Manager) Cancel(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, task := range m.queue {
		if task.ID == id {
			heap.Remove(&m.queue, i)
			return
		}
	}
}

// Pending returns the number of scheduled tasks.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Stop halts the manager goroutine. Pending tasks never fire.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) run() {
	ticker := time.NewTicker(m.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, task := range m.due(time.Now()) {
				task.Run()
			}
		case <-m.stop:
			return
		}
	}
}

// due pops every task whose deadline has passed and re-queues the
// repeating ones.
func (m *Manager) due(now time.Time) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ready []*Task
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Deadline.After(now) {
			break
		}
		heap.Pop(&m.queue)
		ready = append(ready, task)
		if task.Interval > 0 {
			task.Deadline = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	return ready
}
