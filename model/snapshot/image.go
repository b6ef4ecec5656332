package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// PageSize is the granularity of copy-on-write sharing
const PageSize = 4096

// ErrBadDescriptor is returned when closing a descriptor that is not open
var ErrBadDescriptor = errors.New("snapshot: bad descriptor")

type page struct {
	data [PageSize]byte
	refs atomic.Int32
}

func newPage() *page {
	ret := &page{}
	ret.refs.Store(1)
	return ret
}

// Resource represents an entry of the open-resource table
type Resource struct {
	FD     int    `json:"fd" yaml:"fd"`
	Name   string `json:"name" yaml:"name"`
	Offset int64  `json:"offset" yaml:"offset"`
}

// Image is a memory image with registers and open resources. Pages are
// shared between an image and its duplicates until one side writes to them.
type Image struct {
	mu        sync.RWMutex
	pages     map[uint64]*page
	registers map[string]uint64
	resources map[int]*Resource
	nextFD    int
}

// NewImage creates an empty image
func NewImage() *Image {
	return &Image{
		pages:     make(map[uint64]*page),
		registers: make(map[string]uint64),
		resources: make(map[int]*Resource),
	}
}

// Duplicate returns an independent copy of the image. Memory pages are shared
// and copied on the first write from either side.
func (m *Image) Duplicate() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := &Image{
		pages:     make(map[uint64]*page, len(m.pages)),
		registers: make(map[string]uint64, len(m.registers)),
		resources: make(map[int]*Resource, len(m.resources)),
		nextFD:    m.nextFD,
	}
	for idx, p := range m.pages {
		p.refs.Add(1)
		out.pages[idx] = p
	}
	for k, v := range m.registers {
		out.registers[k] = v
	}
	for fd, r := range m.resources {
		clone := *r
		out.resources[fd] = &clone
	}
	return out
}

// Write stores data at addr, breaking page sharing where needed
func (m *Image) Write(addr uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(data) > 0 {
		idx, offset := addr/PageSize, addr%PageSize
		p := m.writablePage(idx)
		n := copy(p.data[offset:], data)
		data = data[n:]
		addr += uint64(n)
	}
}

// writablePage returns a page owned exclusively by m; the caller holds m.mu.
func (m *Image) writablePage(idx uint64) *page {
	p, ok := m.pages[idx]
	if !ok {
		p = newPage()
		m.pages[idx] = p
		return p
	}
	if p.refs.Load() == 1 {
		return p
	}
	private := newPage()
	private.data = p.data
	p.refs.Add(-1)
	m.pages[idx] = private
	return private
}

// Read returns a copy of size bytes at addr; unmapped memory reads as zero
func (m *Image) Read(addr uint64, size int) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, size)
	dest := out
	for len(dest) > 0 {
		idx, offset := addr/PageSize, addr%PageSize
		var n int
		if p, ok := m.pages[idx]; ok {
			n = copy(dest, p.data[offset:])
		} else {
			n = int(PageSize - offset)
			if n > len(dest) {
				n = len(dest)
			}
		}
		dest = dest[n:]
		addr += uint64(n)
	}
	return out
}

// Pages returns the number of mapped pages
func (m *Image) Pages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Release drops the image's references to its pages so that images still
// sharing them can write without copying. The image is empty afterwards.
func (m *Image) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx, p := range m.pages {
		p.refs.Add(-1)
		delete(m.pages, idx)
	}
	m.registers = make(map[string]uint64)
	m.resources = make(map[int]*Resource)
}

// SharedPages returns the number of pages still shared with another image
func (m *Image) SharedPages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.pages {
		if p.refs.Load() > 1 {
			count++
		}
	}
	return count
}

// SetRegister sets a register value
func (m *Image) SetRegister(name string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers[name] = value
}

// Register returns a register value
func (m *Image) Register(name string) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.registers[name]
	return v, ok
}

// Open adds a resource and returns its descriptor
func (m *Image) Open(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	fd := m.nextFD
	m.nextFD++
	m.resources[fd] = &Resource{FD: fd, Name: name}
	return fd
}

// Seek moves the resource offset
func (m *Image) Seek(fd int, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[fd]
	if !ok {
		return fmt.Errorf("seek %d: %w", fd, ErrBadDescriptor)
	}
	r.Offset = offset
	return nil
}

// Close removes a resource
func (m *Image) Close(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[fd]; !ok {
		return fmt.Errorf("close %d: %w", fd, ErrBadDescriptor)
	}
	delete(m.resources, fd)
	return nil
}

// Resources returns the open resources ordered by descriptor
func (m *Image) Resources() []Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FD < out[j].FD })
	return out
}
