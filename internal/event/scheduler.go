package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	queueCapacity  = 10000
	deleteTimeout  = 10 * time.Second
	defaultCleanup = 10 * time.Second
)

type DeletePort interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type deleteTask struct {
	chatID    int64
	messageID int
	dueAt     time.Time
}

// Scheduler removes transient bot messages after a delay. Deletions are
// best-effort, failures are logged and swallowed, pending tasks are lost on
// shutdown.
type Scheduler struct {
	port DeletePort
	q    chan deleteTask

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewScheduler(port DeletePort) *Scheduler {
	return &Scheduler{
		port: port,
		q:    make(chan deleteTask, queueCapacity),
	}
}

func (s *Scheduler) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	if delay <= 0 {
		delay = defaultCleanup
	}
	task := deleteTask{
		chatID:    chatID,
		messageID: messageID,
		dueAt:     time.Now().Add(delay),
	}
	select {
	case s.q <- task:
	default:
		log.WithFields(log.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
		}).Warn("cleanup queue full, dropping scheduled deletion")
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()
		s.run(runCtx)
	}()

	s.started = true
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if !s.started {
		s.runMutex.Unlock()
		return nil
	}
	s.started = false
	cancel := s.runCancel
	s.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.workersWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.q:
			s.workersWg.Add(1)
			go func(task deleteTask) {
				defer s.workersWg.Done()
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Until(task.dueAt)):
				}
				deleteCtx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
				defer cancel()
				if err := s.port.DeleteMessage(deleteCtx, task.chatID, task.messageID); err != nil {
					log.WithFields(log.Fields{
						"chat_id":    task.chatID,
						"message_id": task.messageID,
						"error":      err.Error(),
					}).Debug("cant delete transient message")
				}
			}(task)
		}
	}
}
