package pickups

import (
	"context"
	"testing"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/coordinator"
	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/infrastructure/locking"
	"foodbridge-backend/internal/infrastructure/pubsub"
	"foodbridge-backend/internal/pkg/clock"
	"foodbridge-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	groups    *listinggroups.Service
	recorder  *pubsub.Recorder
	donorOrg  uuid.UUID
	donor     uuid.UUID
	requester uuid.UUID
	reqOrg    uuid.UUID
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &pubsub.Recorder{}
	coord := coordinator.New(db, locking.NewLocal())
	auditSvc := &audit.Service{DB: db}
	notifier := &notifications.Fanout{Publishers: []pubsub.Publisher{rec}}
	clk := clock.NewFixed(testNow)
	groups := &listinggroups.Service{DB: db, Coordinator: coord, Audit: auditSvc, Notifier: notifier, Clock: clk}
	svc := &Service{
		DB:          db,
		Coordinator: coord,
		Groups:      groups,
		Audit:       auditSvc,
		Notifier:    notifier,
		Clock:       clk,
	}
	return &fixture{
		db:        db,
		svc:       svc,
		groups:    groups,
		recorder:  rec,
		donorOrg:  uuid.New(),
		donor:     uuid.New(),
		requester: uuid.New(),
		reqOrg:    uuid.New(),
	}
}

func (f *fixture) publish(t testing.TB, quantity int) *listinggroups.PublishResult {
	t.Helper()
	res, err := f.groups.PublishListing(context.Background(), listinggroups.PublishInput{
		OrgID:       f.donorOrg,
		ActorID:     f.donor,
		ProductName: "Yogurt cups",
		Category:    "dairy",
		Unit:        "unit",
		Quantity:    quantity,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) createInput(listingID uuid.UUID, quantity int) CreateInput {
	return CreateInput{
		ListingID:      listingID,
		RequesterID:    f.requester,
		RequesterOrgID: f.reqOrg,
		Quantity:       quantity,
		PickupDate:     "2026-03-02",
		PickupTime:     "14:30",
	}
}

func (f *fixture) create(t testing.TB, listingID uuid.UUID, quantity int) *domain.PickupRequest {
	t.Helper()
	req, err := f.svc.CreatePickupRequest(context.Background(), f.createInput(listingID, quantity))
	require.NoError(t, err)
	return req
}

// act runs action with the organization entitled to perform it.
func (f *fixture) act(requestID uuid.UUID, action string) (*domain.PickupRequest, error) {
	actor, org := f.donor, f.donorOrg
	if action == ActionConfirmReceived {
		actor, org = f.requester, f.reqOrg
	}
	return f.svc.Transition(context.Background(), TransitionInput{
		RequestID:  requestID,
		Action:     action,
		ActorID:    actor,
		ActorOrgID: org,
	})
}

func (f *fixture) summary(t testing.TB, groupID uuid.UUID) domain.GroupSummary {
	t.Helper()
	s, err := f.groups.GetGroupSummary(context.Background(), groupID)
	require.NoError(t, err)
	return s
}

func (f *fixture) auditCount(t testing.TB, entityType string, id uuid.UUID) int {
	t.Helper()
	logs, err := f.svc.Audit.ListForEntity(context.Background(), entityType, id)
	require.NoError(t, err)
	return len(logs)
}
