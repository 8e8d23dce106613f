package scheduler

//go:generate go run go.uber.org/mock/mockgen -source=./scheduler.go -destination=./mocks/scheduler_mock.go -package=mocks

import (
	"context"
	"fmt"
	"roombook/shared/timezone"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Task receives a context that is cancelled when the scheduler shuts down.
type Task func(ctx context.Context)

type Scheduler interface {
	Every(name string, interval time.Duration, task Task) error
	Start()
	Shutdown() error
}

type schedulerImpl struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func New() (Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(timezone.GetLocation()))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &schedulerImpl{
		scheduler: sched,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Every registers task to run now and then once per interval. Runs never
// overlap: a tick that fires while the previous run is active is skipped.
func (s *schedulerImpl) Every(name string, interval time.Duration, task Task) error {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			task(s.ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}

	log.Info().Str("job", job.Name()).Str("id", job.ID().String()).Dur("interval", interval).Msg("Scheduled job")

	return nil
}

func (s *schedulerImpl) Start() {
	s.scheduler.Start()
}

func (s *schedulerImpl) Shutdown() error {
	s.cancel()

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}

	return nil
}
