// Пакет для управления фоновыми cron-задачами сервиса (очистка журнала
// заявок и подобные регулярные работы).
//
// Основные возможности:
//   - Регистрация задач через реестр имя -> {функция, расписание}.
//   - Запуск и корректная остановка диспетчера.
//   - Восстановление после паники внутри задачи.
package cronmanager

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

type CronJobFunc func()

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
}

// NewCronManager создает менеджер с заданным реестром задач. Задачи не
// запускаются до вызова LoadJobs и Start.
func NewCronManager(jobRegistry JobRegistry) *CronManager {
	dispatcher := cron.New(
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &CronManager{
		dispatcher:  dispatcher,
		jobs:        make(map[string]cron.EntryID),
		jobRegistry: jobRegistry,
	}
}

// LoadJobs переносит задачи из реестра в расписание диспетчера. Ранее
// добавленные задачи предварительно снимаются.
func (cm *CronManager) LoadJobs() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for name, entryID := range cm.jobs {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}

	for name, job := range cm.jobRegistry {
		if err := cm.addJob(name, job); err != nil {
			slog.Error("Error adding job", "name", name, "err", err)
		}
	}

	return nil
}

func (cm *CronManager) addJob(name string, job Job) error {
	id, err := cm.dispatcher.AddFunc(job.Schedule, job.Func)
	if err != nil {
		return fmt.Errorf("failed to add job '%s': %v", name, err)
	}
	cm.jobs[name] = id
	return nil
}

// RemoveJob снимает задачу с расписания по имени.
func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, exists := cm.jobs[name]; exists {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
}

// Start запускает диспетчер.
func (cm *CronManager) Start() {
	cm.dispatcher.Start()
}

// Stop останавливает диспетчер и дожидается завершения текущих задач.
func (cm *CronManager) Stop() {
	ctx := cm.dispatcher.Stop()
	<-ctx.Done()
}
