package skills

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nexuscore/agentcore/pkg/models"
)

// cronParser mirrors the teacher's internal/cron.cronParser: standard
// 5-field cron plus the @every/@hourly descriptors, no optional seconds
// field (pattern-analyzer sweeps don't need sub-minute resolution).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// EventSource is the narrow slice of eventstore.Store the scheduler reads
// from, kept as an interface so this package never imports internal/
// eventstore (the same ToolInvoker-shaped seam executor.go uses for
// internal/tools).
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]models.Event, error)
}

// SchedulerConfig mirrors internal/config.SkillsConfig's mining_* fields.
type SchedulerConfig struct {
	CronSpec    string
	WindowDays  int
	RecentLimit int
}

// DefaultSchedulerConfig returns spec.md §4.4's documented defaults (30 day
// window) plus an hourly cron cadence.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{CronSpec: "0 * * * *", WindowDays: 30, RecentLimit: 5000}
}

// Scheduler runs the pattern analyzer on a cron cadence, per spec.md §2's
// "pattern analyzer runs asynchronously on historical events." Grounded on
// the teacher's internal/cron.Schedule.Next polling loop (parse once,
// sleep until Next(now), repeat) rather than robfig/cron's own Cron
// runner, matching how haasonsaas-nexus itself drives cron expressions
// everywhere it uses this library.
type Scheduler struct {
	cfg     SchedulerConfig
	events  EventSource
	manager *Manager
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler validates cfg.CronSpec eagerly so a typo surfaces at
// startup, not on the sweep's first silent failure.
func NewScheduler(cfg SchedulerConfig, events EventSource, manager *Manager, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cronParser.Parse(cfg.CronSpec); err != nil {
		return nil, fmt.Errorf("skills: invalid mining cron spec %q: %w", cfg.CronSpec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		events:  events,
		manager: manager,
		logger:  logger.With("component", "skills.scheduler"),
	}, nil
}

// Start runs the sweep loop in the background until Stop is called or ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels the loop and waits for the in-flight sweep, if any, to
// return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	sched, err := cronParser.Parse(s.cfg.CronSpec)
	if err != nil {
		s.logger.Error("scheduler stopped: invalid cron spec", "error", err)
		return
	}
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if created, err := s.Sweep(ctx); err != nil {
				s.logger.Error("pattern-analyzer sweep failed", "error", err)
			} else if len(created) > 0 {
				s.logger.Info("pattern-analyzer sweep generated skills", "count", len(created))
			}
		}
	}
}

// Sweep runs one pattern-analyzer pass: it pulls recent events, windows
// them to cfg.WindowDays, groups them per execution in first-seen order,
// extracts each execution's tool-call sequence and UserInput text, and
// feeds the batch to Manager.MineAndGenerate. Exported so "agentcore
// skills mine" can trigger an immediate sweep outside the cron cadence.
func (s *Scheduler) Sweep(ctx context.Context) ([]models.Skill, error) {
	events, err := s.events.Recent(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("skills: scheduler: list recent events: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.WindowDays)
	byExecution := make(map[string][]models.Event)
	var order []string
	for _, evt := range events {
		if evt.Timestamp.Before(cutoff) {
			continue
		}
		if _, ok := byExecution[evt.ExecutionID]; !ok {
			order = append(order, evt.ExecutionID)
		}
		byExecution[evt.ExecutionID] = append(byExecution[evt.ExecutionID], evt)
	}

	records := make([]ExecutionRecord, 0, len(order))
	for _, id := range order {
		execEvents := byExecution[id]
		records = append(records, ExecutionRecord{
			ToolSequence: ExtractToolSequence(execEvents),
			UserInput:    ExtractUserInput(execEvents),
		})
	}

	return s.manager.MineAndGenerate(ctx, records)
}
