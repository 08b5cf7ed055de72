// Package waitlist manages a family's entry: joining, pausing, resuming and
// withdrawing, plus the provider's edits to priority attributes.
package waitlist

import (
	"context"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Recalculator reranks a cohort after its membership changed.
type Recalculator interface {
	RecalculatePositions(ctx context.Context, scope domain.Scope, performedBy *uuid.UUID) (*ranking.Result, error)
}

type Service interface {
	JoinWaitlist(ctx context.Context, parentID uuid.UUID, req JoinWaitlistRequest) (*EntryStatusResponse, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitlistEntry, error)
	GetEntryStatus(ctx context.Context, entryID uuid.UUID) (*EntryStatusResponse, error)
	PauseEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error)
	ResumeEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error)
	// WithdrawEntry removes an ACTIVE or PAUSED entry. OFFERED entries must answer their offer first.
	WithdrawEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error)
	UpdateEntry(ctx context.Context, entryID uuid.UUID, req UpdateEntryRequest, performedBy uuid.UUID) (*domain.WaitlistEntry, error)
	ListEntries(ctx context.Context, filter repository.EntryFilter) ([]*domain.WaitlistEntry, error)
	// PromoteStartedEnrollments moves ACCEPTED entries whose enrollment has started to ENROLLED.
	PromoteStartedEnrollments(ctx context.Context) (int, error)
}

type service struct {
	tx       repository.Transactor
	entries  repository.EntryRepository
	offers   repository.OfferRepository
	capacity repository.CapacityRepository
	locker   ranking.CohortLocker
	ranking  Recalculator
	recorder *audit.Recorder
	clock    clock.Clock
	log      *logger.Logger
}

func NewService(store repository.Store, capacitySvc capacity.Service, recalculator Recalculator, recorder *audit.Recorder, c clock.Clock, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		tx:       store.Tx,
		entries:  store.Entries,
		offers:   store.Offers,
		capacity: store.Capacity,
		locker:   capacitySvc,
		ranking:  recalculator,
		recorder: recorder,
		clock:    c,
		log:      log,
	}
}

var openStatuses = []domain.EntryStatus{
	domain.EntryStatusActive,
	domain.EntryStatusPaused,
	domain.EntryStatusOffered,
	domain.EntryStatusAccepted,
}

func (s *service) JoinWaitlist(ctx context.Context, parentID uuid.UUID, req JoinWaitlistRequest) (*EntryStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scope := domain.NewScope(req.DaycareID, req.ProgramID)
	now := s.clock.Now()
	entry := &domain.WaitlistEntry{
		ID:                      uuid.New(),
		DaycareID:               req.DaycareID,
		ProgramID:               req.ProgramID,
		ChildID:                 req.ChildID,
		ParentID:                parentID,
		Status:                  domain.EntryStatusActive,
		JoinedAt:                now,
		HasSiblingEnrolled:      req.HasSiblingEnrolled,
		IsStaffChild:            req.IsStaffChild,
		InServiceArea:           req.InServiceArea,
		HasSubsidyApproval:      req.HasSubsidyApproval,
		HasCorporatePartnership: req.HasCorporatePartnership,
		HasSpecialNeeds:         req.HasSpecialNeeds,
		ProviderTags:            domain.StringList{},
		PreferredStartDate:      req.PreferredStartDate,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.locker.LockScope(ctx, scope); err != nil {
			return err
		}
		existing, err := s.entries.List(ctx, repository.EntryFilter{
			Scope:    &scope,
			ChildID:  &req.ChildID,
			Statuses: openStatuses,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ierr.NewError("child is already on this waitlist").
				WithReportableDetails(map[string]interface{}{"entry_id": existing[0].ID, "status": existing[0].Status}).
				Mark(ierr.ErrInvalidState)
		}
		if err := s.entries.Create(ctx, entry); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditEntryStatusChanged,
			EntityType:  domain.EntityEntry,
			EntityID:    entry.ID,
			DaycareID:   entry.DaycareID,
			PerformedBy: audit.Actor(parentID),
			After:       entry,
		})
	})
	if err != nil {
		return nil, err
	}

	s.rerank(ctx, scope, parentID)
	return s.GetEntryStatus(ctx, entry.ID)
}

func (s *service) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitlistEntry, error) {
	return s.entries.Get(ctx, entryID)
}

func (s *service) GetEntryStatus(ctx context.Context, entryID uuid.UUID) (*EntryStatusResponse, error) {
	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	scope := entry.Scope()
	cohort, err := s.entries.List(ctx, repository.EntryFilter{
		Scope:    &scope,
		Statuses: []domain.EntryStatus{domain.EntryStatusActive},
	})
	if err != nil {
		return nil, err
	}

	status := &EntryStatusResponse{
		Entry:             entry,
		Position:          entry.Position,
		CohortSize:        len(cohort),
		EstimatedWaitDays: entry.EstimatedWaitDays,
	}
	if entry.Status == domain.EntryStatusActive && entry.Position > 0 {
		status.PositionBand = ranking.PositionBand(entry.Position)
	}

	now := s.clock.Now()
	pending, err := s.offers.List(ctx, repository.OfferFilter{
		EntryID:      &entry.ID,
		Responses:    []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAfter: &now,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		status.OutstandingOffer = pending[0]
	}
	return status, nil
}

func (s *service) PauseEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error) {
	return s.changeStatus(ctx, entryID, domain.EntryStatusPaused, performedBy)
}

func (s *service) ResumeEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error) {
	return s.changeStatus(ctx, entryID, domain.EntryStatusActive, performedBy)
}

func (s *service) WithdrawEntry(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error) {
	return s.changeStatus(ctx, entryID, domain.EntryStatusWithdrawn, performedBy)
}

func (s *service) changeStatus(ctx context.Context, entryID uuid.UUID, target domain.EntryStatus, performedBy uuid.UUID) (*domain.WaitlistEntry, error) {
	var entry *domain.WaitlistEntry
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if entry, err = s.lockEntry(ctx, entryID); err != nil {
			return err
		}
		if err := checkTransition(entry, target); err != nil {
			return err
		}

		before := *entry
		entry.Status = target
		if target != domain.EntryStatusActive {
			// only ACTIVE entries hold a place in the ranking
			entry.Position = 0
			entry.EstimatedWaitDays = nil
		}
		entry.UpdatedAt = s.clock.Now()
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditEntryStatusChanged,
			EntityType:  domain.EntityEntry,
			EntityID:    entry.ID,
			DaycareID:   entry.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			Before:      before,
			After:       entry,
		})
	})
	if err != nil {
		return nil, err
	}

	s.rerank(ctx, entry.Scope(), performedBy)
	return s.entries.Get(ctx, entryID)
}

func checkTransition(entry *domain.WaitlistEntry, target domain.EntryStatus) error {
	if target == domain.EntryStatusWithdrawn {
		switch entry.Status {
		case domain.EntryStatusOffered:
			return ierr.NewError("entry has an outstanding offer").
				WithHint("Accept or decline the offer before withdrawing").
				Mark(ierr.ErrInvalidState)
		case domain.EntryStatusAccepted:
			return ierr.NewError("entry already accepted a spot").Mark(ierr.ErrInvalidState)
		}
	}
	if !entry.Status.CanTransitionTo(target) {
		return ierr.NewErrorf("entry cannot move from %s to %s", entry.Status, target).
			WithReportableDetails(map[string]interface{}{"entry_id": entry.ID}).
			Mark(ierr.ErrInvalidState)
	}
	return nil
}

func (s *service) UpdateEntry(ctx context.Context, entryID uuid.UUID, req UpdateEntryRequest, performedBy uuid.UUID) (*domain.WaitlistEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var entry *domain.WaitlistEntry
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if entry, err = s.lockEntry(ctx, entryID); err != nil {
			return err
		}
		if entry.Status == domain.EntryStatusEnrolled || entry.Status == domain.EntryStatusWithdrawn {
			return ierr.NewErrorf("entry is %s", entry.Status).Mark(ierr.ErrInvalidState)
		}

		before := *entry
		applyUpdate(entry, req)
		entry.UpdatedAt = s.clock.Now()
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditEntryStatusChanged,
			EntityType:  domain.EntityEntry,
			EntityID:    entry.ID,
			DaycareID:   entry.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			Before:      before,
			After:       entry,
		})
	})
	if err != nil {
		return nil, err
	}

	s.rerank(ctx, entry.Scope(), performedBy)
	return s.entries.Get(ctx, entryID)
}

func applyUpdate(entry *domain.WaitlistEntry, req UpdateEntryRequest) {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&entry.HasSiblingEnrolled, req.HasSiblingEnrolled)
	set(&entry.IsStaffChild, req.IsStaffChild)
	set(&entry.InServiceArea, req.InServiceArea)
	set(&entry.HasSubsidyApproval, req.HasSubsidyApproval)
	set(&entry.HasCorporatePartnership, req.HasCorporatePartnership)
	set(&entry.HasSpecialNeeds, req.HasSpecialNeeds)
	if req.ProviderTags != nil {
		entry.ProviderTags = domain.StringList(lo.Uniq(req.ProviderTags))
	}
	if req.PreferredStartDate != nil {
		entry.PreferredStartDate = req.PreferredStartDate
	}
}

func (s *service) ListEntries(ctx context.Context, filter repository.EntryFilter) ([]*domain.WaitlistEntry, error) {
	return s.entries.List(ctx, filter)
}

// lockEntry reads the entry under its cohort lock. Must run inside WithTx.
func (s *service) lockEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitlistEntry, error) {
	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.locker.LockScope(ctx, entry.Scope()); err != nil {
		return nil, err
	}
	return s.entries.Get(ctx, entryID)
}

// rerank is best-effort; the nightly job repairs a cohort whose recalculation failed here.
func (s *service) rerank(ctx context.Context, scope domain.Scope, performedBy uuid.UUID) {
	if s.ranking == nil {
		return
	}
	if _, err := s.ranking.RecalculatePositions(ctx, scope, audit.Actor(performedBy)); err != nil {
		s.log.ErrorWithContext(ctx, "recalculation after entry change failed", err, map[string]interface{}{"scope": scope.String()})
	}
}

func (s *service) PromoteStartedEnrollments(ctx context.Context) (int, error) {
	now := s.clock.Now()
	// enrollments never leave CONFIRMED, so only pick those still waiting on promotion
	started, err := s.capacity.ListEnrollments(ctx, repository.EnrollmentFilter{
		Statuses:         []domain.EnrollmentStatus{domain.EnrollmentStatusConfirmed},
		StartsAtOrBefore: &now,
		EntryStatuses:    []domain.EntryStatus{domain.EntryStatusAccepted},
	})
	if err != nil {
		return 0, err
	}

	promoted := 0
	var errs []error
	for _, enrollment := range started {
		ok, err := s.promote(ctx, enrollment)
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to promote entry", err, map[string]interface{}{"entry_id": enrollment.EntryID})
			errs = append(errs, err)
			continue
		}
		if ok {
			promoted++
		}
	}
	return promoted, errors.Join(errs...)
}

func (s *service) promote(ctx context.Context, enrollment *domain.Enrollment) (bool, error) {
	promoted := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.lockEntry(ctx, enrollment.EntryID)
		if err != nil {
			return err
		}
		if entry.Status != domain.EntryStatusAccepted {
			return nil
		}
		before := *entry
		entry.Status = domain.EntryStatusEnrolled
		entry.UpdatedAt = s.clock.Now()
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		promoted = true
		return s.recorder.Record(ctx, audit.Event{
			Action:     domain.AuditEntryEnrolled,
			EntityType: domain.EntityEntry,
			EntityID:   entry.ID,
			DaycareID:  entry.DaycareID,
			Before:     before,
			After:      map[string]interface{}{"entry": entry, "enrollment_id": enrollment.ID},
		})
	})
	return promoted && err == nil, err
}
