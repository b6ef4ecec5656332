package acct

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/procfork/runtime/process"
)

func TestNew(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	exited := created.Add(1500 * time.Millisecond)
	reaped := exited.Add(time.Second)

	p := process.New(5, 1, nil, created)
	p.Exit(3, exited)
	p.Orphaned = true

	record := New(p, 1, reaped)
	assert.Equal(t, &Record{
		PID:       5,
		ParentPID: 1,
		ExitCode:  3,
		Orphaned:  true,
		CreatedAt: created,
		ExitedAt:  exited,
		ReapedAt:  reaped,
		Elapsed:   1500 * time.Millisecond,
		ReapedBy:  1,
	}, record)
}
