package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Run() error {
	j.runs++
	return j.err
}

func (j *fakeJob) Name() string { return j.name }

func TestAddJobValidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("0 */6 * * *", &fakeJob{name: "rescan"})
	require.NoError(t, err)
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a cron spec", &fakeJob{name: "rescan"})
	require.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "rates"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNowPropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "rates", err: errors.New("provider down")}

	err := s.RunNow(job)
	require.Error(t, err)
	assert.Equal(t, 1, job.runs)
}
