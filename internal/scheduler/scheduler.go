// Package scheduler runs the league's recurring maintenance jobs (token
// sweeps, game reminders) on a process-wide gocron scheduler.
package scheduler

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
)

type core struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

var (
	instance *core
	initOnce sync.Once
	initErr  error
)

// Init builds the process-wide scheduler. Job panics are caught and logged
// so one bad run never takes the server down.
func Init() error {
	initOnce.Do(func() {
		sched, err := gocron.NewScheduler(
			gocron.WithGlobalJobOptions(
				gocron.WithEventListeners(
					gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
						log.Error().
							Str("job_id", jobID.String()).
							Str("job_name", jobName).
							Interface("panic", recoverData).
							Msg("Maintenance job panicked")
					}),
				),
			),
		)
		if err != nil {
			initErr = err
			return
		}
		instance = &core{scheduler: sched}
		log.Info().Msg("Scheduler ready")
	})
	return initErr
}

func get() (*core, error) {
	if instance == nil {
		if initErr != nil {
			return nil, initErr
		}
		return nil, ErrNotInitialized
	}
	return instance, nil
}

// Start begins running registered jobs.
func Start() error {
	c, err := get()
	if err != nil {
		return err
	}
	log.Info().Msg("Scheduler starting")
	c.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down. Safe to call more than once; later calls
// return the first shutdown result.
func Stop() error {
	c, err := get()
	if err != nil {
		return err
	}
	c.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		c.stopErr = c.scheduler.Shutdown()
	})
	return c.stopErr
}

// AddJob registers a cron job. Runs are logged at debug level around the
// task so a silent job still leaves a trace.
func AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	c, err := get()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	wrapped := func() {
		jobLogger.Debug().Msg("Job run started")
		task()
		jobLogger.Debug().Msg("Job run finished")
	}

	jobOpts := append([]gocron.JobOption{gocron.WithName(name)}, opts...)
	job, err := c.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped),
		jobOpts...,
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register job")
		return nil, err
	}
	jobLogger.Info().Msg("Job registered")
	return job, nil
}
