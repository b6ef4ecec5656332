package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"sort"
	"strings"
	"sync"
)

// Service stores accounting records as JSON files (one per pid) under a base
// URL. Any afs scheme works, e.g. file:// or mem://.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[process.PID, acct.Record] = (*Service)(nil)

// Save persists a record, replacing an earlier record of a reused pid
func (s *Service) Save(ctx context.Context, record *acct.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.PID == process.NoPID {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal accounting record %d: %w", record.PID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(record.PID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save accounting record to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves the record of pid
func (s *Service) Load(ctx context.Context, pid process.PID) (*acct.Record, error) {
	if pid == process.NoPID {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.recordURL(pid)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check accounting record %s: %w", URL, err)
	}
	if !exists {
		return nil, fmt.Errorf("accounting record %d: %w", pid, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounting record %s: %w", URL, err)
	}
	record := &acct.Record{}
	if err = json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounting record %s: %w", URL, err)
	}
	return record, nil
}

// Delete removes the record of pid
func (s *Service) Delete(ctx context.Context, pid process.PID) error {
	if pid == process.NoPID {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.recordURL(pid)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check accounting record %s: %w", URL, err)
	}
	if !exists {
		return fmt.Errorf("accounting record %d: %w", pid, dao.ErrNotFound)
	}
	if err = s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete accounting record %s: %w", URL, err)
	}
	return nil
}

// List returns all records ordered by pid
func (s *Service) List(ctx context.Context, _ ...*dao.Parameter) ([]*acct.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounting records: %w", err)
	}
	var records []*acct.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read accounting record %s: %w", object.URL(), err)
		}
		record := &acct.Record{}
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal accounting record %s: %w", object.URL(), err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records, nil
}

func (s *Service) recordURL(pid process.PID) string {
	return url.Join(s.baseURL, fmt.Sprintf("%d.json", pid))
}

// New creates a filesystem accounting store rooted at baseURL
func New(ctx context.Context, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("accounting base URL cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create accounting directory %s: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}
