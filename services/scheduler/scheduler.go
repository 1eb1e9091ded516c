// Package scheduler runs the periodic maintenance jobs of the console.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/storage/database/boltsnap"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

const jobTimeout = 4 * time.Minute

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
}

func New(logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger,
	}
}

// Add registers job under the standard cron spec (or a descriptor such as "@every 5m").
// An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, job JobFunc) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.wrap(name, job)); err != nil {
		return errors.Wrapf(err, "scheduling %s", name)
	}
	return nil
}

func (s *Scheduler) wrap(name string, job JobFunc) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("scheduler: %s: %v", name, err), err)
		}
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling new runs and waits for the running ones to complete, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// MonthlyReset starts a new month of invigilation duties.
func MonthlyReset(svc *invigilation.Service, logger core.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := svc.ResetMonthlyDuties(ctx)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("scheduler: reset the monthly duties of %d invigilator(s)", n))
		return nil
	}
}

// SaveSnapshot persists the in-memory database.
func SaveSnapshot(db *inmemdb.DB, store *boltsnap.Store) JobFunc {
	return func(ctx context.Context) error {
		return errors.Wrap(store.Save(db.Snapshot()), "saving snapshot")
	}
}
