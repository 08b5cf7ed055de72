// Package testutil provides in-memory repositories for service tests.
//
// Store behaves like the gorm adapters: values are copied in and out, WithTx is
// serialized and rolls every map back when fn fails, and a nested WithTx joins
// the outer one.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type txKey struct{}

type Store struct {
	mu sync.Mutex

	entries      map[uuid.UUID]*domain.WaitlistEntry
	rules        map[uuid.UUID]*domain.PriorityRule
	offers       map[uuid.UUID]*domain.WaitlistOffer
	campaigns    map[uuid.UUID]*domain.WaitlistCampaign
	capacities   map[string]*domain.DaycareCapacity
	reservations map[uuid.UUID]*domain.CapacityReservation
	enrollments  map[uuid.UUID]*domain.Enrollment
	audit        []*domain.AuditLog

	failures map[string]error
	txCount  int
}

type snapshot struct {
	entries      map[uuid.UUID]*domain.WaitlistEntry
	rules        map[uuid.UUID]*domain.PriorityRule
	offers       map[uuid.UUID]*domain.WaitlistOffer
	campaigns    map[uuid.UUID]*domain.WaitlistCampaign
	capacities   map[string]*domain.DaycareCapacity
	reservations map[uuid.UUID]*domain.CapacityReservation
	enrollments  map[uuid.UUID]*domain.Enrollment
	audit        []*domain.AuditLog
}

func NewStore() *Store {
	return &Store{
		entries:      make(map[uuid.UUID]*domain.WaitlistEntry),
		rules:        make(map[uuid.UUID]*domain.PriorityRule),
		offers:       make(map[uuid.UUID]*domain.WaitlistOffer),
		campaigns:    make(map[uuid.UUID]*domain.WaitlistCampaign),
		capacities:   make(map[string]*domain.DaycareCapacity),
		reservations: make(map[uuid.UUID]*domain.CapacityReservation),
		enrollments:  make(map[uuid.UUID]*domain.Enrollment),
		failures:     make(map[string]error),
	}
}

// Repos returns every port backed by this store.
func (s *Store) Repos() repository.Store {
	return repository.Store{
		Tx:        s,
		Entries:   &entryRepo{s},
		Rules:     &ruleRepo{s},
		Offers:    &offerRepo{s},
		Campaigns: &campaignRepo{s},
		Capacity:  &capacityRepo{s},
		Audit:     &auditRepo{s},
	}
}

// FailOn makes the named operation (e.g. "offers.Create") return err until cleared with nil.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// TxCount reports how many outermost transactions were started.
func (s *Store) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock takes the store mutex unless ctx already holds it through WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		entries:      copyMap(s.entries),
		rules:        copyMap(s.rules),
		offers:       copyMap(s.offers),
		campaigns:    copyMap(s.campaigns),
		capacities:   copyMap(s.capacities),
		reservations: copyMap(s.reservations),
		enrollments:  copyMap(s.enrollments),
		audit:        append([]*domain.AuditLog(nil), s.audit...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.entries = snap.entries
	s.rules = snap.rules
	s.offers = snap.offers
	s.campaigns = snap.campaigns
	s.capacities = snap.capacities
	s.reservations = snap.reservations
	s.enrollments = snap.enrollments
	s.audit = snap.audit
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func notFound(entity string, id interface{}) error {
	return ierr.NewErrorf("%s not found", entity).
		WithReportableDetails(map[string]interface{}{"entity": entity, "id": id}).
		Mark(ierr.ErrNotFound)
}

func conflict(entity string) error {
	return ierr.NewErrorf("%s conflicts with an existing record", entity).Mark(ierr.ErrInvalidState)
}

func stamp(id *uuid.UUID, created, updated *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

func matchesScope(s domain.Scope, daycareID uuid.UUID, programID *uuid.UUID) bool {
	return s.Covers(daycareID, programID)
}

func idLess(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

// ---- entries ----

type entryRepo struct{ s *Store }

func cloneEntry(e *domain.WaitlistEntry) *domain.WaitlistEntry {
	c := *e
	if e.ProviderTags != nil {
		c.ProviderTags = append(domain.StringList(nil), e.ProviderTags...)
	}
	return &c
}

func (r *entryRepo) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("entries.Create"); err != nil {
		return err
	}
	stamp(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if _, ok := r.s.entries[entry.ID]; ok {
		return conflict("waitlist entry")
	}
	r.s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *entryRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistEntry, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, notFound("waitlist entry", id)
	}
	return cloneEntry(e), nil
}

func (r *entryRepo) Update(ctx context.Context, entry *domain.WaitlistEntry) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("entries.Update"); err != nil {
		return err
	}
	if _, ok := r.s.entries[entry.ID]; !ok {
		return notFound("waitlist entry", entry.ID)
	}
	entry.UpdatedAt = time.Now().UTC()
	r.s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *entryRepo) List(ctx context.Context, f repository.EntryFilter) ([]*domain.WaitlistEntry, error) {
	defer r.s.lock(ctx)()
	var out []*domain.WaitlistEntry
	for _, e := range r.s.entries {
		if f.Scope != nil && !matchesScope(*f.Scope, e.DaycareID, e.ProgramID) {
			continue
		}
		if f.DaycareID != nil && e.DaycareID != *f.DaycareID {
			continue
		}
		if f.ParentID != nil && e.ParentID != *f.ParentID {
			continue
		}
		if f.ChildID != nil && e.ChildID != *f.ChildID {
			continue
		}
		if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, e.Status) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func (r *entryRepo) ListScopes(ctx context.Context, statuses []domain.EntryStatus) ([]domain.Scope, error) {
	defer r.s.lock(ctx)()
	seen := make(map[string]domain.Scope)
	for _, e := range r.s.entries {
		if len(statuses) > 0 && !lo.Contains(statuses, e.Status) {
			continue
		}
		sc := e.Scope()
		seen[sc.Key()] = sc
	}
	keys := lo.Keys(seen)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) domain.Scope { return seen[k] }), nil
}

func paginate[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

// ---- rules ----

type ruleRepo struct{ s *Store }

func cloneRule(r *domain.PriorityRule) *domain.PriorityRule {
	c := *r
	if r.Conditions.RequiredTags != nil {
		c.Conditions.RequiredTags = append([]string(nil), r.Conditions.RequiredTags...)
	}
	return &c
}

func (r *ruleRepo) Create(ctx context.Context, rule *domain.PriorityRule) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("rules.Create"); err != nil {
		return err
	}
	stamp(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	r.s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *ruleRepo) Get(ctx context.Context, id uuid.UUID) (*domain.PriorityRule, error) {
	defer r.s.lock(ctx)()
	rule, ok := r.s.rules[id]
	if !ok {
		return nil, notFound("priority rule", id)
	}
	return cloneRule(rule), nil
}

func (r *ruleRepo) Update(ctx context.Context, rule *domain.PriorityRule) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.rules[rule.ID]; !ok {
		return notFound("priority rule", rule.ID)
	}
	rule.UpdatedAt = time.Now().UTC()
	r.s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *ruleRepo) List(ctx context.Context, f repository.RuleFilter) ([]*domain.PriorityRule, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fail("rules.List"); err != nil {
		return nil, err
	}
	var out []*domain.PriorityRule
	for _, rule := range r.s.rules {
		if rule.DaycareID != f.Scope.DaycareID {
			continue
		}
		switch {
		case f.Scope.ProgramID == nil:
			if rule.ProgramID != nil {
				continue
			}
		case f.IncludeDaycareWide:
			if rule.ProgramID != nil && *rule.ProgramID != *f.Scope.ProgramID {
				continue
			}
		default:
			if rule.ProgramID == nil || *rule.ProgramID != *f.Scope.ProgramID {
				continue
			}
		}
		if f.ActiveOnly && !rule.IsActive {
			continue
		}
		out = append(out, cloneRule(rule))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out, nil
}

// ---- offers ----

type offerRepo struct{ s *Store }

func cloneOffer(o *domain.WaitlistOffer) *domain.WaitlistOffer {
	c := *o
	return &c
}

func (r *offerRepo) Create(ctx context.Context, offer *domain.WaitlistOffer) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("offers.Create"); err != nil {
		return err
	}
	stamp(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt)
	if offer.Response == domain.OfferResponsePending {
		for _, existing := range r.s.offers {
			if existing.EntryID == offer.EntryID && existing.Response == domain.OfferResponsePending {
				return conflict("waitlist offer")
			}
		}
	}
	r.s.offers[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *offerRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, notFound("waitlist offer", id)
	}
	return cloneOffer(o), nil
}

func (r *offerRepo) Update(ctx context.Context, offer *domain.WaitlistOffer) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("offers.Update"); err != nil {
		return err
	}
	if _, ok := r.s.offers[offer.ID]; !ok {
		return notFound("waitlist offer", offer.ID)
	}
	offer.UpdatedAt = time.Now().UTC()
	r.s.offers[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *offerRepo) List(ctx context.Context, f repository.OfferFilter) ([]*domain.WaitlistOffer, error) {
	defer r.s.lock(ctx)()
	var out []*domain.WaitlistOffer
	for _, o := range r.s.offers {
		if f.Scope != nil && !matchesScope(*f.Scope, o.DaycareID, o.ProgramID) {
			continue
		}
		if f.EntryID != nil && o.EntryID != *f.EntryID {
			continue
		}
		if f.CampaignID != nil && (o.CampaignID == nil || *o.CampaignID != *f.CampaignID) {
			continue
		}
		if len(f.Responses) > 0 && !lo.Contains(f.Responses, o.Response) {
			continue
		}
		if f.ExpiresAtOrBefore != nil && o.OfferExpiresAt.After(*f.ExpiresAtOrBefore) {
			continue
		}
		if f.ExpiresAfter != nil && !o.OfferExpiresAt.After(*f.ExpiresAfter) {
			continue
		}
		if f.CreatedAfter != nil && !o.CreatedAt.After(*f.CreatedAfter) {
			continue
		}
		if f.WithoutReminder && o.ReminderSentAt != nil {
			continue
		}
		out = append(out, cloneOffer(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OfferExpiresAt.Equal(out[j].OfferExpiresAt) {
			return out[i].OfferExpiresAt.Before(out[j].OfferExpiresAt)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return paginate(out, 0, f.Limit), nil
}

// ---- campaigns ----

type campaignRepo struct{ s *Store }

func cloneCampaign(c *domain.WaitlistCampaign) *domain.WaitlistCampaign {
	cp := *c
	return &cp
}

func (r *campaignRepo) Create(ctx context.Context, campaign *domain.WaitlistCampaign) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("campaigns.Create"); err != nil {
		return err
	}
	stamp(&campaign.ID, &campaign.CreatedAt, &campaign.UpdatedAt)
	r.s.campaigns[campaign.ID] = cloneCampaign(campaign)
	return nil
}

func (r *campaignRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistCampaign, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, notFound("campaign", id)
	}
	return cloneCampaign(c), nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *domain.WaitlistCampaign) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("campaigns.Update"); err != nil {
		return err
	}
	if _, ok := r.s.campaigns[campaign.ID]; !ok {
		return notFound("campaign", campaign.ID)
	}
	campaign.UpdatedAt = time.Now().UTC()
	r.s.campaigns[campaign.ID] = cloneCampaign(campaign)
	return nil
}

func (r *campaignRepo) List(ctx context.Context, f repository.CampaignFilter) ([]*domain.WaitlistCampaign, error) {
	defer r.s.lock(ctx)()
	var out []*domain.WaitlistCampaign
	for _, c := range r.s.campaigns {
		if f.Scope != nil && !matchesScope(*f.Scope, c.DaycareID, c.ProgramID) {
			continue
		}
		if f.DaycareID != nil && c.DaycareID != *f.DaycareID {
			continue
		}
		if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, c.Status) {
			continue
		}
		out = append(out, cloneCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return paginate(out, f.Offset, f.Limit), nil
}

// ---- capacity ----

type capacityRepo struct{ s *Store }

func (r *capacityRepo) GetCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.capacities[scope.Key()]
	if !ok {
		return nil, notFound("daycare capacity", scope.Key())
	}
	cp := *c
	return &cp, nil
}

// LockCapacity relies on WithTx holding the store mutex.
func (r *capacityRepo) LockCapacity(ctx context.Context, scope domain.Scope) (*domain.DaycareCapacity, error) {
	if err := r.s.fail("capacity.LockCapacity"); err != nil {
		return nil, err
	}
	return r.GetCapacity(ctx, scope)
}

func (r *capacityRepo) SaveCapacity(ctx context.Context, capacity *domain.DaycareCapacity) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("capacity.SaveCapacity"); err != nil {
		return err
	}
	stamp(&capacity.ID, &capacity.CreatedAt, &capacity.UpdatedAt)
	key := capacity.Scope().Key()
	if existing, ok := r.s.capacities[key]; ok && existing.ID != capacity.ID {
		return conflict("daycare capacity")
	}
	for k, existing := range r.s.capacities {
		// upsert on id, as the sql adapter does
		if existing.ID == capacity.ID && k != key {
			delete(r.s.capacities, k)
		}
	}
	capacity.UpdatedAt = time.Now().UTC()
	cp := *capacity
	r.s.capacities[key] = &cp
	return nil
}

func (r *capacityRepo) CreateReservation(ctx context.Context, reservation *domain.CapacityReservation) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("capacity.CreateReservation"); err != nil {
		return err
	}
	for _, existing := range r.s.reservations {
		if existing.OfferID == reservation.OfferID {
			return conflict("capacity reservation")
		}
	}
	stamp(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	cp := *reservation
	r.s.reservations[reservation.ID] = &cp
	return nil
}

func (r *capacityRepo) GetReservationByOffer(ctx context.Context, offerID uuid.UUID) (*domain.CapacityReservation, error) {
	defer r.s.lock(ctx)()
	for _, res := range r.s.reservations {
		if res.OfferID == offerID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, notFound("capacity reservation", offerID)
}

func (r *capacityRepo) UpdateReservation(ctx context.Context, reservation *domain.CapacityReservation) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.reservations[reservation.ID]; !ok {
		return notFound("capacity reservation", reservation.ID)
	}
	reservation.UpdatedAt = time.Now().UTC()
	cp := *reservation
	r.s.reservations[reservation.ID] = &cp
	return nil
}

func (r *capacityRepo) ListReservations(ctx context.Context, f repository.ReservationFilter) ([]*domain.CapacityReservation, error) {
	defer r.s.lock(ctx)()
	var out []*domain.CapacityReservation
	for _, res := range r.s.reservations {
		if f.Scope != nil && !matchesScope(*f.Scope, res.DaycareID, res.ProgramID) {
			continue
		}
		if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, res.Status) {
			continue
		}
		if f.ExpiresAtOrBefore != nil && res.ExpiresAt.After(*f.ExpiresAtOrBefore) {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return paginate(out, 0, f.Limit), nil
}

func (r *capacityRepo) SumHeldSlots(ctx context.Context, scope domain.Scope, now time.Time) (int, error) {
	defer r.s.lock(ctx)()
	total := 0
	for _, res := range r.s.reservations {
		if matchesScope(scope, res.DaycareID, res.ProgramID) && res.IsHolding(now) {
			total += res.Slots
		}
	}
	return total, nil
}

func (r *capacityRepo) CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("capacity.CreateEnrollment"); err != nil {
		return err
	}
	for _, existing := range r.s.enrollments {
		if existing.OfferID == enrollment.OfferID {
			return conflict("enrollment")
		}
	}
	stamp(&enrollment.ID, &enrollment.CreatedAt, &enrollment.UpdatedAt)
	cp := *enrollment
	r.s.enrollments[enrollment.ID] = &cp
	return nil
}

func (r *capacityRepo) GetEnrollmentByOffer(ctx context.Context, offerID uuid.UUID) (*domain.Enrollment, error) {
	defer r.s.lock(ctx)()
	for _, e := range r.s.enrollments {
		if e.OfferID == offerID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, notFound("enrollment", offerID)
}

func (r *capacityRepo) ListEnrollments(ctx context.Context, f repository.EnrollmentFilter) ([]*domain.Enrollment, error) {
	defer r.s.lock(ctx)()
	var out []*domain.Enrollment
	for _, e := range r.s.enrollments {
		if f.Scope != nil && !matchesScope(*f.Scope, e.DaycareID, e.ProgramID) {
			continue
		}
		if f.EntryID != nil && e.EntryID != *f.EntryID {
			continue
		}
		if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, e.Status) {
			continue
		}
		if f.StartsAtOrBefore != nil && e.StartDate.After(*f.StartsAtOrBefore) {
			continue
		}
		if len(f.EntryStatuses) > 0 {
			entry, ok := r.s.entries[e.EntryID]
			if !ok || !lo.Contains(f.EntryStatuses, entry.Status) {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *capacityRepo) SumEnrolledSlots(ctx context.Context, scope domain.Scope) (int, error) {
	defer r.s.lock(ctx)()
	total := 0
	for _, e := range r.s.enrollments {
		if matchesScope(scope, e.DaycareID, e.ProgramID) && e.Status == domain.EnrollmentStatusConfirmed {
			total += e.Slots
		}
	}
	return total, nil
}

// ---- audit ----

type auditRepo struct{ s *Store }

func (r *auditRepo) Append(ctx context.Context, log *domain.AuditLog) error {
	defer r.s.lock(ctx)()
	if err := r.s.fail("audit.Append"); err != nil {
		return err
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *auditRepo) List(ctx context.Context, f repository.AuditFilter) ([]*domain.AuditLog, error) {
	defer r.s.lock(ctx)()
	var out []*domain.AuditLog
	for _, l := range r.s.audit {
		if f.DaycareID != nil && l.DaycareID != *f.DaycareID {
			continue
		}
		if f.EntityID != nil && l.EntityID != *f.EntityID {
			continue
		}
		if len(f.Actions) > 0 && !lo.Contains(f.Actions, l.Action) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return paginate(out, 0, f.Limit), nil
}
