package pickups

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/domain"

	"github.com/cucumber/godog"
)

type lifecycleContext struct {
	t       *testing.T
	f       *fixture
	pub     *listinggroups.PublishResult
	request *domain.PickupRequest
	err     error
}

func (c *lifecycleContext) reset() {
	c.f = newFixture(c.t)
	c.pub = nil
	c.request = nil
	c.err = nil
}

func (c *lifecycleContext) aDonorPublishedUnits(quantity int) error {
	res, err := c.f.groups.PublishListing(context.Background(), listinggroups.PublishInput{
		OrgID:       c.f.donorOrg,
		ActorID:     c.f.donor,
		ProductName: "Yogurt cups",
		Category:    "dairy",
		Unit:        "unit",
		Quantity:    quantity,
	})
	if err != nil {
		return err
	}
	c.pub = res
	return nil
}

func (c *lifecycleContext) theRequesterAsksForUnits(quantity int) error {
	c.request, c.err = c.f.svc.CreatePickupRequest(context.Background(), c.f.createInput(c.pub.Listing.ListingID, quantity))
	return nil
}

func (c *lifecycleContext) transition(action string) func() error {
	return func() error {
		if c.request == nil {
			return errors.New("no pickup request was created")
		}
		req, err := c.f.act(c.request.RequestID, action)
		c.err = err
		if err == nil {
			c.request = req
		}
		return nil
	}
}

func (c *lifecycleContext) theRequesterCancels() error {
	if c.request == nil {
		return errors.New("no pickup request was created")
	}
	req, err := c.f.svc.Transition(context.Background(), TransitionInput{
		RequestID:  c.request.RequestID,
		Action:     ActionCancel,
		ActorID:    c.f.requester,
		ActorOrgID: c.f.reqOrg,
	})
	c.err = err
	if err == nil {
		c.request = req
	}
	return nil
}

func (c *lifecycleContext) theRequestStatusIs(status string) error {
	req, err := c.f.svc.Get(context.Background(), c.request.RequestID)
	if err != nil {
		return err
	}
	if string(req.Status) != status {
		return fmt.Errorf("expected status %q, got %q", status, req.Status)
	}
	return nil
}

func (c *lifecycleContext) theGroupHas(available, reserved, completed int) error {
	s, err := c.f.groups.GetGroupSummary(context.Background(), c.pub.Group.GroupID)
	if err != nil {
		return err
	}
	if s.TotalAvailable != available || s.TotalReserved != reserved || s.TotalCompleted != completed {
		return fmt.Errorf("expected %d/%d/%d, got %d/%d/%d",
			available, reserved, completed, s.TotalAvailable, s.TotalReserved, s.TotalCompleted)
	}
	if s.OriginalQuantity != s.TotalAvailable+s.TotalReserved+s.TotalCompleted {
		return fmt.Errorf("group is unbalanced: %+v", s)
	}
	return nil
}

func (c *lifecycleContext) theGroupIsNotFullyConsumed() error {
	s, err := c.f.groups.GetGroupSummary(context.Background(), c.pub.Group.GroupID)
	if err != nil {
		return err
	}
	if s.IsFullyConsumed {
		return errors.New("expected group not to be fully consumed")
	}
	return nil
}

func (c *lifecycleContext) theReceiverHoldsItemsOf(count, quantity int) error {
	var items []domain.InventoryItem
	if err := c.f.db.Where("org_id = ?", c.f.reqOrg).Find(&items).Error; err != nil {
		return err
	}
	if len(items) != count {
		return fmt.Errorf("expected %d inventory items, got %d", count, len(items))
	}
	for _, item := range items {
		if item.Quantity != quantity {
			return fmt.Errorf("expected item quantity %d, got %d", quantity, item.Quantity)
		}
	}
	return nil
}

func (c *lifecycleContext) theCallFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected the call to fail but it succeeded")
	}
	if got := domain.KindOf(c.err).String(); got != kind {
		return fmt.Errorf("expected %s, got %s (%v)", kind, got, c.err)
	}
	return nil
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		lc := &lifecycleContext{t: t}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			lc.reset()
			return ctx, nil
		})

		// Given steps
		ctx.Step(`^a donor published (\d+) units$`, lc.aDonorPublishedUnits)

		// When steps
		ctx.Step(`^the requester asks for (\d+) units$`, lc.theRequesterAsksForUnits)
		ctx.Step(`^the donor approves the request$`, lc.transition(ActionApprove))
		ctx.Step(`^the donor rejects the request$`, lc.transition(ActionReject))
		ctx.Step(`^the donor marks the request ready$`, lc.transition(ActionMarkReady))
		ctx.Step(`^the donor marks the request picked up$`, lc.transition(ActionMarkPickedUp))
		ctx.Step(`^the requester confirms receipt$`, lc.transition(ActionConfirmReceived))
		ctx.Step(`^the requester cancels the request$`, lc.theRequesterCancels)

		// Then steps
		ctx.Step(`^the request status is "([^"]*)"$`, lc.theRequestStatusIs)
		ctx.Step(`^the group has (\d+) available, (\d+) reserved and (\d+) completed$`, lc.theGroupHas)
		ctx.Step(`^the group is not fully consumed$`, lc.theGroupIsNotFullyConsumed)
		ctx.Step(`^the receiver holds (\d+) inventory items? of (\d+) units$`, lc.theReceiverHoldsItemsOf)
		ctx.Step(`^the call fails with "([^"]*)"$`, lc.theCallFailsWith)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
