package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/metrics"
	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/store"
)

// stage tracks one command invocation: its duration, record metrics and,
// when a store is configured, a run log entry.
type stage struct {
	name    string
	start   time.Time
	metrics *metrics.Recorder
	store   store.Store
	run     *model.Run
	result  model.RunResult
}

func beginStage(ctx context.Context, name, input string) (*stage, error) {
	s := &stage{name: name, start: time.Now(), metrics: metrics.New()}
	if !cfg.StoreEnabled() {
		return s, nil
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	run, err := st.CreateRun(ctx, name, input)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "record run")
	}
	s.store, s.run = st, run
	return s, nil
}

// records sets the run counts and the matching metrics.
func (s *stage) records(in, out int) {
	s.result.RecordsIn, s.result.RecordsOut = in, out
	s.metrics.In(s.name, in)
	s.metrics.Out(s.name, out)
}

// finish completes the run log entry, writes metrics and releases the
// store. runErr is returned as is; bookkeeping failures are only returned
// when the stage itself succeeded.
func (s *stage) finish(ctx context.Context, runErr error) error {
	elapsed := time.Since(s.start)
	s.metrics.ObserveDuration(s.name, elapsed)

	var errs []error
	if s.run != nil {
		res := s.result
		if runErr != nil {
			res.Error = runErr.Error()
		}
		// The run may have been interrupted; the log entry is still written.
		if err := s.store.CompleteRun(context.WithoutCancel(ctx), s.run.ID, res); err != nil {
			errs = append(errs, eris.Wrap(err, "complete run"))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, eris.Wrap(err, "close store"))
		}
	}
	if err := s.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}

	log := zap.L().With(
		zap.String("stage", s.name),
		zap.Duration("elapsed", elapsed),
		zap.Int("records_in", s.result.RecordsIn),
		zap.Int("records_out", s.result.RecordsOut),
	)
	if runErr != nil {
		for _, err := range errs {
			log.Warn("stage bookkeeping failed", zap.Error(err))
		}
		log.Error("stage failed", zap.Error(runErr))
		return runErr
	}
	log.Info("stage complete")
	return errors.Join(errs...)
}
