package table

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procfork/model/snapshot"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
)

func newTable(t *testing.T, options ...Option) *Table {
	t.Helper()
	tbl, err := New(options...)
	require.NoError(t, err)
	return tbl
}

func TestNew_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		options   []Option
		expectErr bool
	}{
		{name: "defaults"},
		{name: "zero max pid", options: []Option{WithMaxPID(0)}, expectErr: true},
		{name: "negative capacity", options: []Option{WithCapacity(-1)}, expectErr: true},
		{name: "capacity above pid space", options: []Option{WithMaxPID(4), WithCapacity(5)}, expectErr: true},
		{name: "capacity within pid space", options: []Option{WithMaxPID(4), WithCapacity(2)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.options...)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTable_AllocateLookup(t *testing.T) {
	tbl := newTable(t)
	image := snapshot.NewImage()
	root, err := tbl.Allocate(process.NoPID, image)
	require.NoError(t, err)
	assert.EqualValues(t, 1, root)
	assert.Equal(t, root, tbl.Root())

	child, err := tbl.Allocate(root, image.Duplicate())
	require.NoError(t, err)
	assert.EqualValues(t, 2, child)

	record, err := tbl.Lookup(child)
	require.NoError(t, err)
	assert.Equal(t, root, record.ParentPID)
	assert.Equal(t, process.StateRunnable, record.State)
	assert.NotNil(t, record.Snapshot)

	parent, err := tbl.Lookup(root)
	require.NoError(t, err)
	assert.True(t, parent.HasChild(child))

	_, err = tbl.Lookup(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_LookupReturnsCopy(t *testing.T) {
	tbl := newTable(t)
	root, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)
	record, err := tbl.Lookup(root)
	require.NoError(t, err)
	record.State = process.StateExited
	record.Children[99] = struct{}{}

	again, err := tbl.Lookup(root)
	require.NoError(t, err)
	assert.Equal(t, process.StateRunnable, again.State)
	assert.Empty(t, again.Children)
}

func TestTable_AllocateInvalidParent(t *testing.T) {
	tbl := newTable(t)
	root, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)

	_, err = tbl.Allocate(77, nil)
	assert.ErrorIs(t, err, ErrInvalidParent)

	require.NoError(t, tbl.MarkExited(root, 0))
	_, err = tbl.Allocate(root, nil)
	assert.ErrorIs(t, err, ErrInvalidParent)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_Lifecycle(t *testing.T) {
	testCases := []struct {
		name   string
		steps  func(tbl *Table, pid process.PID) error
		expect error
	}{
		{
			name:   "reap before exit",
			steps:  func(tbl *Table, pid process.PID) error { _, err := tbl.Reap(pid); return err },
			expect: ErrInvalidState,
		},
		{
			name: "double exit",
			steps: func(tbl *Table, pid process.PID) error {
				if err := tbl.MarkExited(pid, 1); err != nil {
					return err
				}
				return tbl.MarkExited(pid, 1)
			},
			expect: ErrInvalidState,
		},
		{
			name:   "exit unknown pid",
			steps:  func(tbl *Table, pid process.PID) error { return tbl.MarkExited(pid+100, 0) },
			expect: ErrInvalidState,
		},
		{
			name: "double reap",
			steps: func(tbl *Table, pid process.PID) error {
				if err := tbl.MarkExited(pid, 0); err != nil {
					return err
				}
				if _, err := tbl.Reap(pid); err != nil {
					return err
				}
				_, err := tbl.Reap(pid)
				return err
			},
			expect: ErrInvalidState,
		},
		{
			name: "exit then reap",
			steps: func(tbl *Table, pid process.PID) error {
				if err := tbl.MarkExited(pid, 3); err != nil {
					return err
				}
				record, err := tbl.Reap(pid)
				if err != nil {
					return err
				}
				if record.ExitCode != 3 {
					return assert.AnError
				}
				return nil
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := newTable(t)
			root, err := tbl.Allocate(process.NoPID, nil)
			require.NoError(t, err)
			pid, err := tbl.Allocate(root, nil)
			require.NoError(t, err)
			err = tc.steps(tbl, pid)
			if tc.expect == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expect)
		})
	}
}

func TestTable_MarkExitedClosesDone(t *testing.T) {
	tbl := newTable(t)
	pid, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)
	record, err := tbl.Lookup(pid)
	require.NoError(t, err)
	select {
	case <-record.Done():
		t.Fatal("done closed before exit")
	default:
	}
	require.NoError(t, tbl.MarkExited(pid, 7))
	<-record.Done()
	exited, err := tbl.Lookup(pid)
	require.NoError(t, err)
	assert.Equal(t, 7, exited.ExitCode)
	assert.NotNil(t, exited.ExitedAt)
}

func TestTable_ReapReparentsToRoot(t *testing.T) {
	tbl := newTable(t)
	root, _ := tbl.Allocate(process.NoPID, nil)
	parent, _ := tbl.Allocate(root, nil)
	child, _ := tbl.Allocate(parent, nil)
	zombie, _ := tbl.Allocate(parent, nil)
	require.NoError(t, tbl.MarkExited(zombie, 5))
	require.NoError(t, tbl.MarkExited(parent, 0))

	reaped, err := tbl.Reap(parent)
	require.NoError(t, err)
	assert.Equal(t, []process.PID{child, zombie}, reaped.ChildPIDs())

	rootRecord, err := tbl.Lookup(root)
	require.NoError(t, err)
	assert.Equal(t, []process.PID{child, zombie}, rootRecord.ChildPIDs())
	for _, pid := range []process.PID{child, zombie} {
		record, err := tbl.Lookup(pid)
		require.NoError(t, err)
		assert.Equal(t, root, record.ParentPID)
		assert.True(t, record.Orphaned)
	}

	_, err = tbl.Lookup(parent)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_ReapRoot(t *testing.T) {
	tbl := newTable(t)
	root, _ := tbl.Allocate(process.NoPID, nil)
	child, _ := tbl.Allocate(root, nil)
	require.NoError(t, tbl.MarkExited(root, 0))

	_, err := tbl.Reap(root)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, tbl.MarkExited(child, 0))
	_, err = tbl.Reap(child)
	require.NoError(t, err)
	_, err = tbl.Reap(root)
	require.NoError(t, err)
	assert.Equal(t, process.NoPID, tbl.Root())
	assert.Equal(t, 0, tbl.Len())
}

func TestTable_Exhaustion(t *testing.T) {
	const k = 4
	tbl := newTable(t, WithMaxPID(k))
	root, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)
	pids := map[process.PID]bool{root: true}
	for i := 1; i < k; i++ {
		pid, err := tbl.Allocate(root, nil)
		require.NoError(t, err)
		pids[pid] = true
	}
	assert.Len(t, pids, k)

	_, err = tbl.Allocate(root, nil)
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, k, tbl.Len())

	// a zombie still holds its pid
	require.NoError(t, tbl.MarkExited(3, 0))
	_, err = tbl.Allocate(root, nil)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	_, err = tbl.Reap(3)
	require.NoError(t, err)
	pid, err := tbl.Allocate(root, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pid)
}

func TestTable_CapacityExhaustion(t *testing.T) {
	tbl := newTable(t, WithMaxPID(100), WithCapacity(2))
	root, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)
	_, err = tbl.Allocate(root, nil)
	require.NoError(t, err)
	_, err = tbl.Allocate(root, nil)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	record, err := tbl.Lookup(root)
	require.NoError(t, err)
	assert.Len(t, record.Children, 1)
}

func TestTable_WrapAroundSkipsLive(t *testing.T) {
	tbl := newTable(t, WithMaxPID(5))
	root, _ := tbl.Allocate(process.NoPID, nil)
	for i := 0; i < 4; i++ {
		_, err := tbl.Allocate(root, nil)
		require.NoError(t, err)
	}
	// free 2 and 4, pid 1 (root), 3 and 5 stay live
	for _, pid := range []process.PID{2, 4} {
		require.NoError(t, tbl.MarkExited(pid, 0))
		_, err := tbl.Reap(pid)
		require.NoError(t, err)
	}
	first, err := tbl.Allocate(root, nil)
	require.NoError(t, err)
	second, err := tbl.Allocate(root, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first)
	assert.EqualValues(t, 4, second)
}

func TestTable_List(t *testing.T) {
	tbl := newTable(t)
	root, _ := tbl.Allocate(process.NoPID, nil)
	a, _ := tbl.Allocate(root, nil)
	b, _ := tbl.Allocate(root, nil)
	require.NoError(t, tbl.MarkExited(a, 0))

	all := tbl.List()
	assert.Len(t, all, 3)
	assert.Equal(t, root, all[0].PID)

	exited := tbl.List(dao.NewParameter("State", string(process.StateExited)))
	require.Len(t, exited, 1)
	assert.Equal(t, a, exited[0].PID)

	runnable := tbl.List(dao.NewParameter("State", string(process.StateRunnable)))
	require.Len(t, runnable, 2)
	assert.Equal(t, b, runnable[1].PID)
}

func TestTable_ConcurrentAllocate(t *testing.T) {
	const n = 64
	tbl := newTable(t)
	root, err := tbl.Allocate(process.NoPID, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]process.PID, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tbl.Allocate(root, nil)
		}(i)
	}
	wg.Wait()

	seen := map[process.PID]bool{root: true}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i]], "duplicate pid %d", results[i])
		seen[results[i]] = true
	}
	assert.Equal(t, n+1, tbl.Len())
	record, err := tbl.Lookup(root)
	require.NoError(t, err)
	assert.Len(t, record.Children, n)
}
