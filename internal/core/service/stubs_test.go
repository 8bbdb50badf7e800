package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

var discardLogger = zerolog.Nop()

const testSecret = "test-signing-secret"

func newTestCredentials(opts ...CredentialOption) *CredentialStore {
	opts = append([]CredentialOption{WithBcryptCost(bcrypt.MinCost)}, opts...)
	creds, err := NewCredentialStore(testSecret, opts...)
	if err != nil {
		panic(err)
	}
	return creds
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Account

	findErr   error
	updateErr error
	deleteErr error
	touched   map[string]time.Time
	deleted   []string
}

func newStubAccountRepo(accounts ...*domain.Account) *stubAccountRepo {
	r := &stubAccountRepo{byID: map[string]*domain.Account{}, touched: map[string]time.Time{}}
	for _, a := range accounts {
		r.byID[a.ID] = cloneAccount(a)
	}
	return r
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (r *stubAccountRepo) get(id string) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(r.byID[id])
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, a.Email) {
			return domain.ErrConflict
		}
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) CreateFirstAdmin(_ context.Context, a *domain.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byID) > 0 {
		return false, nil
	}
	r.byID[a.ID] = cloneAccount(a)
	return true, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubAccountRepo) List(_ context.Context, f domain.AccountFilter) ([]*domain.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Account
	for _, a := range r.byID {
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubAccountRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, id string, u domain.ProfileUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Apply(a)
	return nil
}

func (r *stubAccountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (r *stubAccountRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[id] = at
	if a, ok := r.byID[id]; ok {
		a.LastLoginAt = &at
	}
	return nil
}

func (r *stubAccountRepo) Statistics(_ context.Context) (*domain.AccountStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.AccountStats{ByRole: map[domain.Role]int64{}}
	for _, a := range r.byID {
		stats.Total++
		stats.ByRole[a.Role]++
		switch a.Status {
		case domain.StatusActive:
			stats.Active++
		case domain.StatusInactive:
			stats.Inactive++
		case domain.StatusSuspended:
			stats.Suspended++
		case domain.StatusPendingApproval:
			stats.PendingApproval++
		case domain.StatusRestricted:
			stats.Restricted++
		}
	}
	return stats, nil
}

func (r *stubAccountRepo) DeleteCascade(_ context.Context, id, _ string) (domain.ErasureCounts, error) {
	if r.deleteErr != nil {
		return domain.ErasureCounts{}, r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErasureCounts{}, domain.ErrNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return domain.ErasureCounts{Accounts: 1}, nil
}

// ---------------------------------------------------------------------------
// Audit dead letters
// ---------------------------------------------------------------------------

type stubDeadLetters struct {
	byActor map[string]int64
	err     error
}

func (d *stubDeadLetters) RemoveByActor(_ context.Context, actorID string) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	n := d.byActor[actorID]
	delete(d.byActor, actorID)
	return n, nil
}

// ---------------------------------------------------------------------------
// Session revocations
// ---------------------------------------------------------------------------

type stubRevocations struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	revokeErr error
	lookupErr error
}

func newStubRevocations() *stubRevocations {
	return &stubRevocations{revoked: map[string]time.Time{}}
}

func (r *stubRevocations) Revoke(_ context.Context, id string, at time.Time) error {
	if r.revokeErr != nil {
		return r.revokeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = at.Truncate(time.Millisecond)
	return nil
}

func (r *stubRevocations) RevokedAt(_ context.Context, id string) (time.Time, bool, error) {
	if r.lookupErr != nil {
		return time.Time{}, false, r.lookupErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.revoked[id]
	return at, ok, nil
}

func (r *stubRevocations) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, e domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) find(action string) (domain.AuditEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Action == action {
			return e, true
		}
	}
	return domain.AuditEntry{}, false
}

func (r *recordingAudit) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type stubAuditRepo struct {
	mu        sync.Mutex
	events    []domain.AuditEvent
	insertErr error
	listErr   error
}

func (r *stubAuditRepo) Insert(_ context.Context, e *domain.AuditEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *stubAuditRepo) ListByActor(_ context.Context, actorID string, limit int) ([]domain.AuditEvent, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].ActorID == actorID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *stubAuditRepo) CountTaggedSince(_ context.Context, actorID, resourceType string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if e.ActorID == actorID && e.ResourceType == resourceType && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type stubFallback struct {
	stored []*domain.AuditEvent
	causes []error
	err    error
}

func (f *stubFallback) Store(_ context.Context, e *domain.AuditEvent, cause error) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, e)
	f.causes = append(f.causes, cause)
	return nil
}

// ---------------------------------------------------------------------------
// Documents, requests, retention
// ---------------------------------------------------------------------------

type stubDocumentRepo struct {
	docs []domain.DocumentMetadata
}

func (r *stubDocumentRepo) ListByUploader(_ context.Context, id string) ([]domain.DocumentMetadata, error) {
	var out []domain.DocumentMetadata
	for _, d := range r.docs {
		if d.UploadedBy == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *stubDocumentRepo) CountUploadedSince(_ context.Context, id string, since time.Time) (int64, error) {
	var n int64
	for _, d := range r.docs {
		if d.UploadedBy == id && !d.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type stubRequestRepo struct {
	mu         sync.Mutex
	accounts   *stubAccountRepo
	rows       map[string]*domain.DataSubjectRequest
	nextID     int
	rectifyErr error
}

func newStubRequestRepo(accounts *stubAccountRepo) *stubRequestRepo {
	return &stubRequestRepo{accounts: accounts, rows: map[string]*domain.DataSubjectRequest{}}
}

func requestKey(email string, t domain.RequestType) string {
	return strings.ToLower(email) + "|" + string(t)
}

func (r *stubRequestRepo) Upsert(_ context.Context, req *domain.DataSubjectRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := requestKey(req.SubjectEmail, req.Type)
	if existing, ok := r.rows[key]; ok {
		req.ID = existing.ID
		req.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		req.ID = fmt.Sprintf("req-%d", r.nextID)
		req.CreatedAt = time.Now().UTC()
	}
	req.UpdatedAt = time.Now().UTC()
	c := *req
	r.rows[key] = &c
	return nil
}

func (r *stubRequestRepo) ListBySubject(_ context.Context, email string) ([]domain.DataSubjectRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DataSubjectRequest
	for _, row := range r.rows {
		if strings.EqualFold(row.SubjectEmail, email) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *stubRequestRepo) Rectify(ctx context.Context, accountID string, u domain.ProfileUpdate, req *domain.DataSubjectRequest) error {
	if r.rectifyErr != nil {
		return r.rectifyErr
	}
	if err := r.accounts.UpdateProfile(ctx, accountID, u); err != nil {
		return err
	}
	return r.Upsert(ctx, req)
}

func (r *stubRequestRepo) row(email string, t domain.RequestType) (*domain.DataSubjectRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[requestKey(email, t)]
	return row, ok
}

func (r *stubRequestRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type stubRetentionRepo struct {
	policies map[string]domain.RetentionPolicy
	expired  map[string]int64
	listErr  error
	purgeErr error
	cutoffs  map[string]time.Time
	seeded   int
}

func newStubRetentionRepo(policies ...domain.RetentionPolicy) *stubRetentionRepo {
	r := &stubRetentionRepo{policies: map[string]domain.RetentionPolicy{}, expired: map[string]int64{}}
	for _, p := range policies {
		r.policies[p.TableName] = p
	}
	return r
}

func (r *stubRetentionRepo) List(context.Context) ([]domain.RetentionPolicy, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.RetentionPolicy
	for _, t := range domain.RetentionTables() {
		if p, ok := r.policies[t]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRetentionRepo) Get(_ context.Context, table string) (*domain.RetentionPolicy, error) {
	p, ok := r.policies[table]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *stubRetentionRepo) Update(_ context.Context, p *domain.RetentionPolicy) error {
	r.policies[p.TableName] = *p
	return nil
}

func (r *stubRetentionRepo) SeedDefaults(_ context.Context, days int, basis string) error {
	for _, t := range domain.RetentionTables() {
		if _, ok := r.policies[t]; ok {
			continue
		}
		r.policies[t] = domain.RetentionPolicy{TableName: t, RetentionDays: days, LegalBasis: basis}
		r.seeded++
	}
	return nil
}

func (r *stubRetentionRepo) CountExpired(_ context.Context, table string, _ time.Time) (int64, error) {
	return r.expired[table], nil
}

func (r *stubRetentionRepo) Purge(_ context.Context, cutoffs map[string]time.Time) (map[string]int64, error) {
	if r.purgeErr != nil {
		return nil, r.purgeErr
	}
	r.cutoffs = cutoffs
	out := make(map[string]int64, len(cutoffs))
	for t := range cutoffs {
		out[t] = r.expired[t]
		r.expired[t] = 0
	}
	return out, nil
}

type stubArchive struct {
	saved []*domain.ComplianceReport
	err   error
}

func (a *stubArchive) Save(_ context.Context, r *domain.ComplianceReport) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, r)
	return nil
}

func (a *stubArchive) Recent(_ context.Context, limit int64) ([]domain.ComplianceReport, error) {
	if a.err != nil {
		return nil, a.err
	}
	var out []domain.ComplianceReport
	for i := len(a.saved) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, *a.saved[i])
	}
	return out, nil
}
