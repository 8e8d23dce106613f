package bootstrap

import (
	"context"
	"fmt"
	"roombook/config"
	"roombook/helper"
	"roombook/infras/kafka"
	"roombook/infras/scheduler"
	bookingModel "roombook/internal/domains/booking/model"
	reminderService "roombook/internal/domains/reminder/service"
	roomModel "roombook/internal/domains/room/model"
	roomService "roombook/internal/domains/room/service"
	"roombook/shared/timezone"
	"roombook/transport/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	reminderJobName         = "booking-reminders"
	defaultReminderInterval = 15 * time.Minute
)

// Migrator applies pending schema migrations.
type Migrator func(cfg *config.Config) error

// App runs the one-off startup tasks and then serves HTTP until shutdown.
type App struct {
	Config    *config.Config
	HTTP      *http.HTTP
	Rooms     roomService.Room
	Reminders reminderService.Reminder
	Scheduler scheduler.Scheduler
	Events    kafka.Client
	Migrate   Migrator
}

func New(
	cfg *config.Config,
	server *http.HTTP,
	rooms roomService.Room,
	reminders reminderService.Reminder,
	sched scheduler.Scheduler,
	events kafka.Client,
) *App {
	return &App{
		Config:    cfg,
		HTTP:      server,
		Rooms:     rooms,
		Reminders: reminders,
		Scheduler: sched,
		Events:    events,
		Migrate:   helper.Up,
	}
}

// Start migrates, seeds rooms and schedules the reminder job. It does not serve.
func (a *App) Start(ctx context.Context) error {
	if a.Config.DB.Postgres.AutoMigrate {
		if err := a.Migrate(a.Config); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	report, err := a.Rooms.SeedDefaults(ctx, roomModel.DefaultSeed().WithRooms(a.Config.App.Rooms))
	if err != nil {
		return fmt.Errorf("failed to seed rooms: %w", err)
	}

	log.Info().Strs("inserted", report.Inserted).Strs("filled", report.Filled).Msg("Rooms seeded")

	if !a.Config.Reminder.Enable {
		log.Info().Msg("Reminder job disabled")

		return nil
	}

	if err := a.Scheduler.Every(reminderJobName, a.reminderInterval(), a.dispatchReminders); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	a.Scheduler.Start()

	return nil
}

// Run starts the application and blocks until the HTTP server has shut down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	a.HTTP.OnShutdown(a.Stop)
	a.HTTP.Serve()

	return nil
}

// Stop releases the scheduler and the event producer.
func (a *App) Stop() {
	if err := a.Scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("failed to stop scheduler")
	}

	if err := a.Events.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka writer")
	}
}

func (a *App) reminderInterval() time.Duration {
	if minutes := a.Config.Reminder.IntervalMinutes; minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}

	return defaultReminderInterval
}

func (a *App) lookahead() int {
	if hours := a.Config.Reminder.LookaheadHours; hours > 0 {
		return hours
	}

	return bookingModel.DefaultLookaheadHours
}

func (a *App) dispatchReminders(ctx context.Context) {
	report, err := a.Reminders.Dispatch(ctx, a.lookahead(), timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("scheduled reminder dispatch failed")

		return
	}

	log.Info().
		Int("sent", len(report.Sent)).
		Int("failed", len(report.Failures)).
		Msg("Scheduled reminder dispatch finished")
}
