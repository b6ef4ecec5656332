package memory

import (
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/dao/store"
)

// Service keeps accounting records in memory
type Service struct {
	*store.MemoryStore[process.PID, acct.Record]
}

var _ dao.Service[process.PID, acct.Record] = (*Service)(nil)

// New creates an in-memory accounting store
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[process.PID, acct.Record](func(r *acct.Record) process.PID { return r.PID }),
	}
}
