package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warranty/internal/warranty/models"
	"warranty/internal/warranty/store/memory"
	"warranty/internal/warranty/validity"
	"warranty/pkg/domain"
	"warranty/pkg/testutil"
)

type registry struct {
	svc    *Service
	clock  *testutil.StubClock
	outbox *memory.Outbox
}

func newRegistry() *registry {
	clock := testutil.FixedClock()
	outbox := memory.NewOutbox()
	svc := New(memory.NewCertificateStore(), memory.NewOwnershipLedger(), memory.NewRunner(),
		WithClock(clock),
		WithEmitter(outbox),
	)
	return &registry{svc: svc, clock: clock, outbox: outbox}
}

func (r *registry) create(t *testing.T, req models.CreateCertificateRequest) domain.CertificateID {
	t.Helper()
	id, err := r.svc.CreateCertificate(context.Background(), seller, req)
	require.NoError(t, err)
	return id
}

func withBuyer(b domain.Address) models.CreateCertificateRequest {
	req := validRequest()
	req.BuyerAddress = string(b)
	return req
}

func TestScenario_IDsFollowTheCounter(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		before, err := r.svc.TokenCounter(ctx)
		require.NoError(t, err)

		id := r.create(t, validRequest())
		assert.Equal(t, domain.CertificateID(before), id)

		after, err := r.svc.TokenCounter(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(id)+1, after)
	}
}

func TestScenario_RejectedCreationDoesNotAdvanceCounter(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	r.create(t, validRequest())

	bad := []func(*models.CreateCertificateRequest){
		func(req *models.CreateCertificateRequest) { req.BrandName = "" },
		func(req *models.CreateCertificateRequest) { req.Product = "" },
		func(req *models.CreateCertificateRequest) { req.Category = "" },
		func(req *models.CreateCertificateRequest) { req.Price = 0 },
		func(req *models.CreateCertificateRequest) { req.WarrantyPeriod = 0 },
		func(req *models.CreateCertificateRequest) { req.BuyerAddress = "" },
	}
	for _, mutate := range bad {
		req := validRequest()
		mutate(&req)
		_, err := r.svc.CreateCertificate(ctx, seller, req)
		require.Error(t, err)
	}

	count, err := r.svc.TokenCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, domain.CertificateID(1), r.create(t, validRequest()))
}

func TestScenario_CreatorHoldsNewCertificate(t *testing.T) {
	r := newRegistry()
	id := r.create(t, withBuyer(buyer))

	owner, err := r.svc.OwnerOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)

	info, err := r.svc.GetCertificateInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, seller, info.SellerAddress)
	assert.Equal(t, seller, info.Owner)
	assert.Equal(t, buyer, info.BuyerAddress)
}

func TestScenario_ValidityBoundary(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	req := validRequest()
	req.BrandName = "Sony"
	req.WarrantyPeriod = 12
	id := r.create(t, req)

	status, err := r.svc.IsWarrantyValid(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Valid)

	r.clock.Advance(time.Duration(12*validity.MonthSeconds) * time.Second)
	status, err = r.svc.IsWarrantyValid(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Valid, "still valid at the exact expiry second")

	r.clock.Advance(time.Second)
	status, err = r.svc.IsWarrantyValid(ctx, id)
	require.NoError(t, err)
	assert.False(t, status.Valid)

	info, err := r.svc.GetCertificateInfo(ctx, id)
	require.NoError(t, err)
	assert.False(t, info.Validity.Valid)
}

func TestScenario_NonexistentCertificate(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	_, err := r.svc.IsWarrantyValid(ctx, 0)
	assert.EqualError(t, err, models.MsgCertificateNotFound)

	_, err = r.svc.GetCertificateInfo(ctx, 0)
	assert.EqualError(t, err, models.MsgCertificateNotFound)
}

func TestScenario_BuyersIndependentOfTransfers(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	first := r.create(t, withBuyer(buyer))
	require.NoError(t, r.svc.TransferFrom(ctx, seller, first, seller, third))
	second := r.create(t, withBuyer(third))
	require.NoError(t, r.svc.TransferFrom(ctx, third, first, third, seller))

	count, err := r.svc.TokenCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	info, err := r.svc.GetCertificateInfo(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, buyer, info.BuyerAddress)

	info, err = r.svc.GetCertificateInfo(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, third, info.BuyerAddress)
}

func TestScenario_TransferKeepsBuyer(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	id := r.create(t, withBuyer(buyer))

	require.NoError(t, r.svc.TransferFrom(ctx, seller, id, seller, third))

	owner, err := r.svc.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, third, owner)

	info, err := r.svc.GetCertificateInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buyer, info.BuyerAddress)

	err = r.svc.TransferFrom(ctx, seller, id, seller, buyer)
	assert.EqualError(t, err, models.MsgCallerNotOwner)
}

func TestScenario_SelfIssuedCertificate(t *testing.T) {
	r := newRegistry()
	id := r.create(t, withBuyer(seller))

	info, err := r.svc.GetCertificateInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, info.SellerAddress, info.BuyerAddress)
}

func TestScenario_BalanceAndListing(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	a := r.create(t, withBuyer(buyer))
	r.create(t, withBuyer(third))
	require.NoError(t, r.svc.TransferFrom(ctx, seller, a, seller, buyer))

	balance, err := r.svc.BalanceOf(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance)

	balance, err = r.svc.BalanceOf(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance)

	infos, err := r.svc.ListByParty(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, a, infos[0].ID)
	assert.Equal(t, buyer, infos[0].Owner)
	assert.True(t, infos[0].Validity.Valid)

	infos, err = r.svc.ListByParty(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestScenario_EventsAreRecorded(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	id := r.create(t, withBuyer(buyer))
	require.NoError(t, r.svc.TransferFrom(ctx, seller, id, seller, third))
	err := r.svc.TransferFrom(ctx, seller, id, seller, buyer)
	require.Error(t, err)

	events, err := r.outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventWarrantyCreated, events[0].Type)
	assert.Equal(t, models.EventCertificateTransferred, events[1].Type)
}

func TestScenario_ConcurrentCreatesAndTransfers(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan domain.CertificateID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.svc.CreateCertificate(ctx, seller, withBuyer(buyer))
			if assert.NoError(t, err) {
				ids <- id
			}
			_, _ = r.svc.TokenCounter(ctx)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.CertificateID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	for i := 0; i < n; i++ {
		assert.True(t, seen[domain.CertificateID(i)], "missing id %d", i)
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id domain.CertificateID) {
			defer wg.Done()
			assert.NoError(t, r.svc.TransferFrom(ctx, seller, id, seller, third))
		}(domain.CertificateID(i))
	}
	wg.Wait()

	balance, err := r.svc.BalanceOf(ctx, third)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), balance)
}
