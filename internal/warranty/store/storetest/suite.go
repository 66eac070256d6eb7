// Package storetest is a conformance suite shared by every store backend.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"warranty/internal/warranty/models"
	"warranty/internal/warranty/service"
	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
	"warranty/pkg/platform/sentinel"
)

const (
	Seller = domain.Address("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	Buyer  = domain.Address("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	Other  = domain.Address("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
)

// Outbox is the transactional event log of a backend.
type Outbox interface {
	service.EventEmitter
	Pending(ctx context.Context, limit int) ([]models.Event, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Backend bundles the stores of one implementation sharing one transaction runner.
type Backend struct {
	Certificates service.CertificateStore
	Ledger       service.OwnershipLedger
	Tx           service.StoreTx
	Outbox       Outbox
}

// Suite runs the store contract against a fresh Backend per test. Set New
// before passing the suite to suite.Run.
type Suite struct {
	suite.Suite
	New func() Backend

	b   Backend
	ctx context.Context
}

func (s *Suite) SetupTest() {
	s.b = s.New()
	s.ctx = context.Background()
}

var created = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newCertificate(seller, buyer domain.Address, product string) *models.Certificate {
	return &models.Certificate{
		BrandName:      "Sony",
		Product:        product,
		Category:       "Electronics",
		Description:    "covered purchase",
		Price:          500,
		WarrantyPeriod: 12,
		CreationTime:   created,
		SellerAddress:  seller,
		BuyerAddress:   buyer,
	}
}

// mint appends and initializes ownership in one transaction.
func (s *Suite) mint(seller, buyer domain.Address, product string) domain.CertificateID {
	var id domain.CertificateID
	err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
		var err error
		id, err = s.b.Certificates.Append(ctx, newCertificate(seller, buyer, product))
		if err != nil {
			return err
		}
		return s.b.Ledger.Initialize(ctx, id, seller)
	})
	s.Require().NoError(err)
	return id
}

func (s *Suite) TestSequentialIdentifiers() {
	s.Run("ids start at zero and follow the count", func() {
		for want := domain.CertificateID(0); want < 3; want++ {
			before, err := s.b.Certificates.Count(s.ctx)
			s.Require().NoError(err)
			s.Equal(uint64(want), before)

			s.Equal(want, s.mint(Seller, Buyer, "PlayStation 5"))
		}
		count, err := s.b.Certificates.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})
}

func (s *Suite) TestFindByID() {
	s.Run("returns the stored record", func() {
		id := s.mint(Seller, Buyer, "Walkman")

		cert, err := s.b.Certificates.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(id, cert.ID)
		s.Equal("Sony", cert.BrandName)
		s.Equal("Walkman", cert.Product)
		s.Equal("Electronics", cert.Category)
		s.Equal("covered purchase", cert.Description)
		s.Equal(int64(500), cert.Price)
		s.Equal(int64(12), cert.WarrantyPeriod)
		s.True(created.Equal(cert.CreationTime))
		s.Equal(Seller, cert.SellerAddress)
		s.Equal(Buyer, cert.BuyerAddress)
	})

	s.Run("returns ErrNotFound past the count", func() {
		_, err := s.b.Certificates.FindByID(s.ctx, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *Suite) TestListByParty() {
	first := s.mint(Seller, Buyer, "A")
	s.mint(Other, Other, "B")
	third := s.mint(Other, Seller, "C")

	certs, err := s.b.Certificates.ListByParty(s.ctx, Seller)
	s.Require().NoError(err)
	s.Require().Len(certs, 2)
	s.Equal(first, certs[0].ID)
	s.Equal(third, certs[1].ID)

	certs, err = s.b.Certificates.ListByParty(s.ctx, domain.Address("0x000000000000000000000000000000000000dead"))
	s.Require().NoError(err)
	s.Empty(certs)
}

func (s *Suite) TestOwnership() {
	s.Run("initial holder is the seller, not the buyer", func() {
		id := s.mint(Seller, Buyer, "TV")
		owner, err := s.b.Ledger.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(Seller, owner)
	})

	s.Run("transfer moves the holder and leaves the certificate alone", func() {
		id := s.mint(Seller, Buyer, "Camera")
		err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.b.Ledger.Transfer(ctx, id, Seller, Other)
		})
		s.Require().NoError(err)

		owner, err := s.b.Ledger.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(Other, owner)

		cert, err := s.b.Certificates.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(Buyer, cert.BuyerAddress)
		s.Equal(Seller, cert.SellerAddress)
	})

	s.Run("transfer from a non-holder is forbidden", func() {
		id := s.mint(Seller, Buyer, "Radio")
		err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.b.Ledger.Transfer(ctx, id, Buyer, Other)
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("transfer to the zero identity is rejected", func() {
		id := s.mint(Seller, Buyer, "Speaker")
		err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.b.Ledger.Transfer(ctx, id, Seller, domain.ZeroAddress)
		})
		s.Require().Error(err)
		s.Equal(models.MsgTransferToZero, err.Error())
	})

	s.Run("unknown certificate", func() {
		_, err := s.b.Ledger.OwnerOf(s.ctx, 404)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		err = s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.b.Ledger.Transfer(ctx, 404, Seller, Other)
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *Suite) TestBalanceOf() {
	s.mint(Seller, Buyer, "A")
	id := s.mint(Seller, Buyer, "B")
	s.Require().NoError(s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.b.Ledger.Transfer(ctx, id, Seller, Other)
	}))

	balance, err := s.b.Ledger.BalanceOf(s.ctx, Seller)
	s.Require().NoError(err)
	s.Equal(uint64(1), balance)

	balance, err = s.b.Ledger.BalanceOf(s.ctx, Other)
	s.Require().NoError(err)
	s.Equal(uint64(1), balance)

	balance, err = s.b.Ledger.BalanceOf(s.ctx, Buyer)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *Suite) TestRollbackLeavesNoTrace() {
	s.mint(Seller, Buyer, "kept")
	boom := errors.New("boom")

	err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
		id, err := s.b.Certificates.Append(ctx, newCertificate(Seller, Buyer, "dropped"))
		if err != nil {
			return err
		}
		if err := s.b.Ledger.Initialize(ctx, id, Seller); err != nil {
			return err
		}
		event, err := models.NewWarrantyCreatedEvent(&models.Certificate{ID: id, CreationTime: created})
		if err != nil {
			return err
		}
		if err := s.b.Outbox.Emit(ctx, event); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	count, err := s.b.Certificates.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), count)

	_, err = s.b.Ledger.OwnerOf(s.ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)

	pending, err := s.b.Outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	s.Equal(domain.CertificateID(1), s.mint(Seller, Buyer, "next"))
}

func (s *Suite) TestRollbackRestoresHolder() {
	id := s.mint(Seller, Buyer, "A")
	boom := errors.New("boom")

	err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.b.Ledger.Transfer(ctx, id, Seller, Other); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	owner, err := s.b.Ledger.OwnerOf(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(Seller, owner)
}

func (s *Suite) TestOutbox() {
	var ids []uuid.UUID
	for i := range 3 {
		event, err := models.NewCertificateTransferredEvent(domain.CertificateID(i), Seller, Other, created.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.Require().NoError(s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.b.Outbox.Emit(ctx, event)
		}))
		ids = append(ids, event.ID)
	}

	pending, err := s.b.Outbox.Pending(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(ids[0], pending[0].ID)
	s.Equal(ids[1], pending[1].ID)
	s.Equal(models.EventCertificateTransferred, pending[0].Type)
	var transferred models.CertificateTransferred
	s.Require().NoError(json.Unmarshal(pending[0].Payload, &transferred))
	s.Equal(Other, transferred.To)

	s.Require().NoError(s.b.Outbox.MarkPublished(s.ctx, ids[0], created))

	pending, err = s.b.Outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(ids[1], pending[0].ID)

	err = s.b.Outbox.MarkPublished(s.ctx, uuid.New(), created)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *Suite) TestConcurrentAppendsAreGapFree() {
	const writers = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var id domain.CertificateID
			err := s.b.Tx.RunInTx(s.ctx, func(ctx context.Context) error {
				var err error
				id, err = s.b.Certificates.Append(ctx, newCertificate(Seller, Buyer, "burst"))
				if err != nil {
					return err
				}
				return s.b.Ledger.Initialize(ctx, id, Seller)
			})
			s.NoError(err)
			mu.Lock()
			ids = append(ids, int(id))
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(ids)
	for i, id := range ids {
		s.Equal(i, id)
	}
	count, err := s.b.Certificates.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(writers), count)
}
