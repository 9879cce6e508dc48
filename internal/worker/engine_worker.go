package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/engine"
	"github.com/spec-kit/notification-engine/internal/events"
	"github.com/spec-kit/notification-engine/internal/service"
)

// EngineWorker owns the background halves of the engine: the event queue
// consumer and the SLA scan loop.
type EngineWorker struct {
	dispatcher events.Dispatcher
	monitor    *engine.SLAMonitor
	engineSvc  *service.EngineService
	logger     *zap.Logger
}

// NewEngineWorker constructs the worker.
func NewEngineWorker(dispatcher events.Dispatcher, monitor *engine.SLAMonitor, engineSvc *service.EngineService, logger *zap.Logger) *EngineWorker {
	return &EngineWorker{dispatcher: dispatcher, monitor: monitor, engineSvc: engineSvc, logger: logger}
}

// Start registers handlers and launches the queue consumer and scan schedule.
func (w *EngineWorker) Start(scanCronSpec string) error {
	w.engineSvc.RegisterHandlers()
	w.dispatcher.Start()
	if err := w.monitor.Start(scanCronSpec); err != nil {
		return err
	}
	w.logger.Info("engine worker started", zap.String("scan_schedule", scanCronSpec))
	return nil
}

// Stop drains background work in dependency order: stop scanning, stop
// consuming events, then drop any still-pending delayed timers.
func (w *EngineWorker) Stop() {
	w.monitor.Stop()
	w.dispatcher.Stop()
	w.engineSvc.Scheduler().Stop()
	w.logger.Info("engine worker stopped")
}
