package app

import (
	"time"

	"github.com/kbukum/orthotile/logger"
)

// SessionResult is the outcome of one session.
type SessionResult struct {
	Name     string
	State    State
	Tiles    int
	Rejected int
	Batches  int
	Rasters  []string
	Elapsed  time.Duration
	Err      error
}

// Summary reports a whole run.
type Summary struct {
	RunID       string
	Sessions    []SessionResult
	Interrupted bool
	Elapsed     time.Duration
}

// Total is the number of sessions attempted.
func (s *Summary) Total() int { return len(s.Sessions) }

// Succeeded counts sessions that finished in Success.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Sessions {
		if r.State == Success {
			n++
		}
	}
	return n
}

// FailedSessions lists the names of the sessions that ended in Failed. An
// interrupted session is not a failure.
func (s *Summary) FailedSessions() []string {
	var names []string
	for _, r := range s.Sessions {
		if r.State == Failed {
			names = append(names, r.Name)
		}
	}
	return names
}

// Failed counts sessions that ended in Failed.
func (s *Summary) Failed() int { return len(s.FailedSessions()) }

// Log writes the summary to log, one line per failed or interrupted
// session.
func (s *Summary) Log(log *logger.Logger) {
	log = log.WithFields(map[string]interface{}{logger.FieldRunID: s.RunID})
	fields := logger.Fields(
		"total", s.Total(),
		"succeeded", s.Succeeded(),
		"failed", s.Failed(),
		"interrupted", s.Interrupted,
		logger.FieldDuration, s.Elapsed.Milliseconds(),
	)
	if s.Failed() == 0 {
		log.Info("run finished", fields)
	} else {
		log.Warn("run finished with failures", fields)
	}
	for _, r := range s.Sessions {
		switch r.State {
		case Failed:
			f := logger.Fields(logger.FieldSession, r.Name)
			if r.Err != nil {
				f[logger.FieldError] = r.Err.Error()
			}
			log.Warn("session failed", f)
		case Done:
			log.Info("session interrupted", logger.Fields(logger.FieldSession, r.Name))
		}
	}
}
