package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeVendorAPI is a scriptable VendorAPIClient for handler and worker tests.
// Unset funcs fail loudly so a test never silently exercises the wrong path.
type fakeVendorAPI struct {
	loginFunc          func(ctx context.Context, username, password string) (*LoginResult, error)
	profileFunc        func(ctx context.Context, token string) (*VendorProfile, error)
	updateProfileFunc  func(ctx context.Context, token string, input ProfileUpdate) (*VendorProfile, error)
	changePasswordFunc func(ctx context.Context, token, current, updated string) error
	analyticsFunc      func(ctx context.Context, token string) (*DashboardStats, error)
	submitLeadFunc     func(ctx context.Context, lead LeadPayload) error
}

func (f *fakeVendorAPI) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if f.loginFunc == nil {
		return nil, errors.New("loginFunc not set")
	}
	return f.loginFunc(ctx, username, password)
}

func (f *fakeVendorAPI) Profile(ctx context.Context, token string) (*VendorProfile, error) {
	if f.profileFunc == nil {
		return nil, errors.New("profileFunc not set")
	}
	return f.profileFunc(ctx, token)
}

func (f *fakeVendorAPI) UpdateProfile(ctx context.Context, token string, input ProfileUpdate) (*VendorProfile, error) {
	if f.updateProfileFunc == nil {
		return nil, errors.New("updateProfileFunc not set")
	}
	return f.updateProfileFunc(ctx, token, input)
}

func (f *fakeVendorAPI) ChangePassword(ctx context.Context, token, current, updated string) error {
	if f.changePasswordFunc == nil {
		return errors.New("changePasswordFunc not set")
	}
	return f.changePasswordFunc(ctx, token, current, updated)
}

func (f *fakeVendorAPI) Analytics(ctx context.Context, token string) (*DashboardStats, error) {
	if f.analyticsFunc == nil {
		return nil, errors.New("analyticsFunc not set")
	}
	return f.analyticsFunc(ctx, token)
}

func (f *fakeVendorAPI) SubmitLead(ctx context.Context, lead LeadPayload) error {
	if f.submitLeadFunc == nil {
		return errors.New("submitLeadFunc not set")
	}
	return f.submitLeadFunc(ctx, lead)
}

// memLeadRepo is an in-memory LeadRepository.
type memLeadRepo struct {
	mu     sync.Mutex
	nextID int64
	leads  map[int64]*Lead
}

func newMemLeadRepo() *memLeadRepo {
	return &memLeadRepo{nextID: 1, leads: map[int64]*Lead{}}
}

func (r *memLeadRepo) Create(ctx context.Context, lead Lead) (int64, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	lead.ID = id
	lead.Status = "pending"
	lead.CreatedAt = time.Now()
	r.leads[id] = &lead
	return id, lead.CreatedAt, nil
}

func (r *memLeadRepo) FindByID(ctx context.Context, id int64) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, errors.New("lead not found")
	}
	cp := *l
	return &cp, nil
}

func (r *memLeadRepo) AcquirePending(ctx context.Context, id int64) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, errors.New("lead not found")
	}
	if l.Status != "pending" {
		return nil, ErrLeadNotPending
	}
	l.Status = "delivering"
	cp := *l
	return &cp, nil
}

func (r *memLeadRepo) MarkStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return errors.New("lead not found")
	}
	l.Status = status
	return nil
}

func (r *memLeadRepo) MarkDelivered(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return errors.New("lead not found")
	}
	now := time.Now()
	l.Status = "delivered"
	l.DeliveredAt = &now
	return nil
}

func (r *memLeadRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return errors.New("lead not found")
	}
	l.Status = "failed"
	return nil
}

func (r *memLeadRepo) IncrementRetry(ctx context.Context, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return 0, errors.New("lead not found")
	}
	l.RetryCount++
	return l.RetryCount, nil
}

func (r *memLeadRepo) CountByStatus(ctx context.Context) (LeadStatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c LeadStatusCounts
	for _, l := range r.leads {
		switch l.Status {
		case "pending", "delivering":
			c.Pending++
		case "delivered":
			c.Delivered++
		case "failed":
			c.Failed++
		}
	}
	return c, nil
}

func (r *memLeadRepo) status(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leads[id]; ok {
		return l.Status
	}
	return ""
}

// memQueue is an in-memory RedisClient for router tests.
type memQueue struct {
	mu      sync.Mutex
	pending []string
}

func (q *memQueue) Enqueue(ctx context.Context, pendingKey string, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, value)
	return nil
}

func (q *memQueue) Reserve(ctx context.Context, pendingKey, processingKey string, visibility time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func (q *memQueue) Ack(ctx context.Context, processingKey string, value string) error {
	return nil
}

func (q *memQueue) RequeueExpired(ctx context.Context, processingKey, pendingKey string, now time.Time) ([]string, error) {
	return nil, nil
}
