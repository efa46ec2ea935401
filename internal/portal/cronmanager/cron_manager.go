// Пакет для управления фоновыми задачами по расписанию cron.
//
// Основные возможности:
//   - Регистрация задач с расписанием.
//   - Пропуск запуска, если предыдущий запуск задачи еще не завершился.
//   - Ручной запуск задачи вне расписания.
//   - Остановка с ожиданием выполняющихся задач.
package cronmanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type CronJobFunc func(ctx context.Context) error

type Job struct {
	Func     CronJobFunc
	Schedule string
}

type JobRegistry map[string]Job

type CronManager struct {
	dispatcher  *cron.Cron
	jobs        map[string]cron.EntryID
	mu          sync.Mutex
	jobRegistry JobRegistry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCronManager создает менеджер для задач из реестра. Задачи попадают в расписание после LoadJobs.
func NewCronManager(jobRegistry JobRegistry) *CronManager {
	dispatcher := cron.New(
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &CronManager{
		dispatcher:  dispatcher,
		jobs:        make(map[string]cron.EntryID),
		jobRegistry: jobRegistry,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// LoadJobs заново добавляет в расписание все задачи реестра. Задачи с пустым расписанием
// пропускаются. Возвращает первую ошибку разбора расписания, остальные задачи при этом добавляются.
func (cm *CronManager) LoadJobs() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for name, entryID := range cm.jobs {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}

	var firstErr error
	for name, job := range cm.jobRegistry {
		if job.Schedule == "" {
			slog.Info("Cron job disabled", "name", name)
			continue
		}
		if err := cm.addJob(name, job); err != nil {
			slog.Error("Error adding job", "name", name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (cm *CronManager) addJob(name string, job Job) error {
	id, err := cm.dispatcher.AddFunc(job.Schedule, func() { cm.run(name, job) })
	if err != nil {
		return fmt.Errorf("add job '%s': %w", name, err)
	}
	cm.jobs[name] = id
	return nil
}

func (cm *CronManager) run(name string, job Job) {
	start := time.Now()
	if err := job.Func(cm.ctx); err != nil {
		slog.Error("Cron job failed", "name", name, "elapsed", time.Since(start).String(), "err", err)
		return
	}
	slog.Debug("Cron job done", "name", name, "elapsed", time.Since(start).String())
}

// RunNow синхронно выполняет задачу из реестра вне расписания.
func (cm *CronManager) RunNow(name string) error {
	job, exists := cm.jobRegistry[name]
	if !exists {
		return fmt.Errorf("no job function registered for name: %s", name)
	}
	return job.Func(cm.ctx)
}

// Scheduled сообщает, стоит ли задача в расписании.
func (cm *CronManager) Scheduled(name string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	_, ok := cm.jobs[name]
	return ok
}

func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, exists := cm.jobs[name]; exists {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
}

func (cm *CronManager) Start() {
	cm.dispatcher.Start()
}

// Stop останавливает расписание, отменяет контекст задач и ждет завершения выполняющихся.
func (cm *CronManager) Stop() {
	ctx := cm.dispatcher.Stop()
	cm.cancel()
	<-ctx.Done()
}
