package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/wansing/infodesk/upload"
)

// memDB implements AccountDB and SubmissionDB in memory.
type memDB struct {
	mu       sync.Mutex
	accounts []*Account
	pending  []*PendingSubmission
	active   []*ActiveSubmission
}

func (m *memDB) InsertAccount(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrDuplicate
		}
	}
	a.ID = len(m.accounts) + 1
	var stored = *a
	m.accounts = append(m.accounts, &stored)
	return nil
}

func (m *memDB) GetAccount(ctx context.Context, id int) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || id > len(m.accounts) {
		return nil, ErrNotFound
	}
	var a = *m.accounts[id-1]
	return &a, nil
}

func (m *memDB) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			var copied = *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memDB) GetAccounts(ctx context.Context, ids []int) (map[int]*Account, error) {
	var result = make(map[int]*Account)
	for _, id := range ids {
		a, err := m.GetAccount(ctx, id)
		if err == nil {
			result[id] = a
		}
	}
	return result, nil
}

func (m *memDB) ListAccounts(ctx context.Context, filter AccountFilter) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Account
	for i := len(m.accounts) - 1; i >= 0; i-- {
		var a = *m.accounts[i]
		if filter.With != 0 && !a.Capabilities.Has(filter.With) {
			continue
		}
		if filter.Without != 0 && a.Capabilities.Has(filter.Without) {
			continue
		}
		result = append(result, &a)
	}
	return paginate(result, filter.Page), nil
}

func (m *memDB) UpdateCapabilities(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID <= 0 || a.ID > len(m.accounts) {
		return ErrNotFound
	}
	var stored = m.accounts[a.ID-1]
	stored.Capabilities = a.Capabilities
	stored.ApprovedAt = a.ApprovedAt
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (m *memDB) UpdatePasswordHash(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID <= 0 || a.ID > len(m.accounts) {
		return ErrNotFound
	}
	m.accounts[a.ID-1].PasswordHash = a.PasswordHash
	m.accounts[a.ID-1].UpdatedAt = a.UpdatedAt
	return nil
}

func (m *memDB) InsertPending(ctx context.Context, p *PendingSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = len(m.pending) + 1
	var stored = *p
	m.pending = append(m.pending, &stored)
	return nil
}

func (m *memDB) insertActive(a *ActiveSubmission) error {
	for _, existing := range m.active {
		if a.PendingID != 0 && existing.PendingID == a.PendingID {
			return ErrDuplicate
		}
	}
	a.ID = len(m.active) + 1
	var stored = *a
	m.active = append(m.active, &stored)
	return nil
}

func (m *memDB) InsertActive(ctx context.Context, a *ActiveSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertActive(a)
}

func (m *memDB) GetPending(ctx context.Context, id int) (*PendingSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || id > len(m.pending) {
		return nil, ErrNotFound
	}
	var p = *m.pending[id-1]
	return &p, nil
}

func (m *memDB) Transition(ctx context.Context, id int, to Status, active *ActiveSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || id > len(m.pending) || m.pending[id-1].Status != StatusPending {
		return ErrNotFound
	}
	if active != nil {
		if err := m.insertActive(active); err != nil {
			return err
		}
	}
	m.pending[id-1].Status = to
	return nil
}

func (m *memDB) ListPending(ctx context.Context, filter SubmissionFilter) ([]*PendingSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*PendingSubmission
	for _, p := range m.pending {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.SubmitterID != 0 && p.SubmitterID != filter.SubmitterID {
			continue
		}
		var copied = *p
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.After(result[j].SubmittedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, filter.Page), nil
}

func (m *memDB) ListActive(ctx context.Context, filter SubmissionFilter) ([]*ActiveSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ActiveSubmission
	for _, a := range m.active {
		if filter.SubmitterID != 0 && a.SubmitterID != filter.SubmitterID {
			continue
		}
		var copied = *a
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ApprovedAt.Equal(result[j].ApprovedAt) {
			return result[i].ApprovedAt.After(result[j].ApprovedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, filter.Page), nil
}

func paginate[T any](items []T, page Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return nil
	}
	items = items[page.Offset:]
	if len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return items
}

// memImages implements upload.Store in memory.
type memImages struct {
	mu     sync.Mutex
	files  map[string][]byte
	serial int
}

func (s *memImages) Save(ctx context.Context, folder string, src io.Reader) (string, error) {
	data, ext, err := upload.ReadImage(src, 0)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.serial++
	var ref = fmt.Sprintf("%s/%d%s", folder, s.serial, ext)
	s.files[ref] = data
	return ref, nil
}

func (s *memImages) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	return nil
}

func (s *memImages) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	http.NotFound(w, req)
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestDB() (*CoreDB, *memDB, *fixedClock) {
	var mem = &memDB{}
	var clock = &fixedClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	var c = &CoreDB{
		AccountDB:              mem,
		SubmissionDB:           mem,
		Images:                 &memImages{},
		Clock:                  clock,
		RequirePasswordConfirm: true,
	}
	return c, mem, clock
}
