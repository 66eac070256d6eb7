package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"warranty/internal/warranty/clock"
	"warranty/internal/warranty/metrics"
	"warranty/internal/warranty/models"
	"warranty/internal/warranty/validity"
	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
	"warranty/pkg/platform/sentinel"
	"warranty/pkg/requestcontext"
)

var tracer = otel.Tracer("warranty/internal/warranty/service")

// Service is the registry façade. It composes the certificate store, the
// ownership ledger, the validity oracle and the clock, and translates their
// failures into domain errors. Mutations run inside StoreTx.RunInTx and reads
// inside StoreTx.View, so a read never sees half of a create or transfer.
type Service struct {
	certificates CertificateStore
	ledger       OwnershipLedger
	tx           StoreTx
	oracle       ValidityOracle
	clock        clock.Clock
	emitter      EventEmitter
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithEmitter records notifications for creations and transfers. The emitter
// is called inside the mutating transaction.
func WithEmitter(emitter EventEmitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithOracle replaces the default oracle built over the certificate store.
func WithOracle(oracle ValidityOracle) Option {
	return func(s *Service) {
		s.oracle = oracle
	}
}

// New constructs a Service.
func New(certificates CertificateStore, ledger OwnershipLedger, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		certificates: certificates,
		ledger:       ledger,
		tx:           tx,
		clock:        clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.oracle == nil {
		s.oracle = validity.NewOracle(certificates)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateCertificate validates req, stores the certificate with caller as
// seller, makes caller its first holder and returns the assigned id. A
// rejected request writes nothing and does not consume an id.
func (s *Service) CreateCertificate(ctx context.Context, caller domain.Address, req models.CreateCertificateRequest) (domain.CertificateID, error) {
	ctx, span := tracer.Start(ctx, "warranty.CreateCertificate")
	defer span.End()
	start := time.Now()

	now := s.clock.Now()
	seller, err := callerIdentity(caller)
	if err != nil {
		s.rejectCreation(ctx, span, err, caller)
		return 0, err
	}
	cert, err := models.NewCertificate(req, seller, now)
	if err != nil {
		s.rejectCreation(ctx, span, err, caller)
		return 0, err
	}

	var id domain.CertificateID
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.certificates.Append(ctx, cert)
		if err != nil {
			return err
		}
		if err := s.ledger.Initialize(ctx, id, cert.SellerAddress); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		event, err := models.NewWarrantyCreatedEvent(cert)
		if err != nil {
			return err
		}
		return s.emitter.Emit(ctx, event)
	})
	if err != nil {
		err = translate(err, "failed to create certificate")
		s.logger.ErrorContext(ctx, "certificate creation failed",
			"error", err,
			"seller", cert.SellerAddress,
			"request_id", requestcontext.RequestID(ctx),
		)
		recordError(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("certificate.id", int64(id)))
	s.logger.InfoContext(ctx, "certificate created",
		"certificate_id", id,
		"seller", cert.SellerAddress,
		"buyer", cert.BuyerAddress,
		"warranty_period", cert.WarrantyPeriod,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
		s.metrics.ObserveCreate(start)
	}
	return id, nil
}

// GetCertificateInfo returns the certificate with its current holder and its
// validity at the time of the call.
func (s *Service) GetCertificateInfo(ctx context.Context, id domain.CertificateID) (*models.CertificateInfo, error) {
	ctx, span := tracer.Start(ctx, "warranty.GetCertificateInfo", trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()

	now := s.clock.Now()
	var info *models.CertificateInfo
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		info, err = s.describe(ctx, id, now)
		return err
	})
	if err != nil {
		err = translate(err, "failed to load certificate")
		recordError(span, err)
		return nil, err
	}
	return info, nil
}

// IsWarrantyValid reports whether the certificate is valid now.
func (s *Service) IsWarrantyValid(ctx context.Context, id domain.CertificateID) (models.ValidityStatus, error) {
	ctx, span := tracer.Start(ctx, "warranty.IsWarrantyValid", trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()

	now := s.clock.Now()
	var status models.ValidityStatus
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		status, err = s.oracle.IsValid(ctx, id, now)
		return err
	})
	if err != nil {
		err = translate(err, "failed to check validity")
		recordError(span, err)
		return models.ValidityStatus{}, err
	}
	span.SetAttributes(attribute.Bool("certificate.valid", status.Valid))
	if s.metrics != nil {
		s.metrics.IncrementValidityCheck(status.Valid)
	}
	return status, nil
}

// OwnerOf returns the current holder of the certificate.
func (s *Service) OwnerOf(ctx context.Context, id domain.CertificateID) (domain.Address, error) {
	ctx, span := tracer.Start(ctx, "warranty.OwnerOf", trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()

	var owner domain.Address
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		owner, err = s.ledger.OwnerOf(ctx, id)
		return err
	})
	if err != nil {
		err = translate(err, "failed to load owner")
		recordError(span, err)
		return "", err
	}
	return owner, nil
}

// TransferFrom moves the certificate from its holder to another identity on
// behalf of caller. Checks run in order: the certificate exists, the caller
// is the holder, from is the holder, to is a real identity. The buyer on the
// certificate never changes.
func (s *Service) TransferFrom(ctx context.Context, caller domain.Address, id domain.CertificateID, from, to domain.Address) error {
	ctx, span := tracer.Start(ctx, "warranty.TransferFrom", trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()
	start := time.Now()

	now := s.clock.Now()
	var recipient domain.Address
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		holder, err := s.ledger.OwnerOf(ctx, id)
		if err != nil {
			return err
		}
		if err := models.CheckCaller(holder, caller); err != nil {
			return err
		}
		if err := models.CheckTransfer(holder, from, to); err != nil {
			return err
		}
		recipient, err = domain.ParseAddress(string(to))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, models.MsgTransferToInvalid)
		}
		if err := s.ledger.Transfer(ctx, id, holder, recipient); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		event, err := models.NewCertificateTransferredEvent(id, holder, recipient, now)
		if err != nil {
			return err
		}
		return s.emitter.Emit(ctx, event)
	})
	if err != nil {
		err = translate(err, "failed to transfer certificate")
		s.logTransferFailure(ctx, err, id, caller, from, to)
		s.incrementTransfer(err)
		recordError(span, err)
		return err
	}

	s.logger.InfoContext(ctx, "certificate transferred",
		"certificate_id", id,
		"from", from,
		"to", recipient,
		"caller", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.incrementTransfer(nil)
	if s.metrics != nil {
		s.metrics.ObserveTransfer(start)
	}
	return nil
}

// TokenCounter returns the number of certificates ever created, which is also
// the next id to be assigned.
func (s *Service) TokenCounter(ctx context.Context) (uint64, error) {
	ctx, span := tracer.Start(ctx, "warranty.TokenCounter")
	defer span.End()

	var count uint64
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.certificates.Count(ctx)
		return err
	})
	if err != nil {
		err = translate(err, "failed to count certificates")
		recordError(span, err)
		return 0, err
	}
	return count, nil
}

// BalanceOf returns how many certificates holder currently holds.
func (s *Service) BalanceOf(ctx context.Context, holder domain.Address) (uint64, error) {
	ctx, span := tracer.Start(ctx, "warranty.BalanceOf")
	defer span.End()

	if holder.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "balance query for the zero address")
	}
	parsed, err := domain.ParseAddress(string(holder))
	if err != nil {
		return 0, err
	}

	var balance uint64
	err = s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.ledger.BalanceOf(ctx, parsed)
		return err
	})
	if err != nil {
		err = translate(err, "failed to count holdings")
		recordError(span, err)
		return 0, err
	}
	return balance, nil
}

// ListByParty returns every certificate where party is the seller or the
// buyer, id ascending, each with its holder and validity at the same instant.
func (s *Service) ListByParty(ctx context.Context, party domain.Address) ([]*models.CertificateInfo, error) {
	ctx, span := tracer.Start(ctx, "warranty.ListByParty")
	defer span.End()

	parsed, err := domain.ParseAddress(string(party))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var infos []*models.CertificateInfo
	err = s.tx.View(ctx, func(ctx context.Context) error {
		certs, err := s.certificates.ListByParty(ctx, parsed)
		if err != nil {
			return err
		}
		infos = make([]*models.CertificateInfo, 0, len(certs))
		for _, cert := range certs {
			owner, err := s.ledger.OwnerOf(ctx, cert.ID)
			if err != nil {
				return err
			}
			infos = append(infos, &models.CertificateInfo{
				Certificate: *cert,
				Owner:       owner,
				Validity:    validity.Check(cert, now),
			})
		}
		return nil
	})
	if err != nil {
		err = translate(err, "failed to list certificates")
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("certificates.count", len(infos)))
	return infos, nil
}

func (s *Service) describe(ctx context.Context, id domain.CertificateID, now time.Time) (*models.CertificateInfo, error) {
	cert, err := s.certificates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.ledger.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CertificateInfo{
		Certificate: *cert,
		Owner:       owner,
		Validity:    validity.Check(cert, now),
	}, nil
}

func (s *Service) rejectCreation(ctx context.Context, span trace.Span, err error, caller domain.Address) {
	s.logger.WarnContext(ctx, "certificate creation rejected",
		"error", err,
		"caller", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	recordError(span, err)
	if s.metrics != nil {
		s.metrics.IncrementRejected(rejectionReason(err))
	}
}

func (s *Service) logTransferFailure(ctx context.Context, err error, id domain.CertificateID, caller, from, to domain.Address) {
	args := []any{
		"error", err,
		"certificate_id", id,
		"caller", caller,
		"from", from,
		"to", to,
		"request_id", requestcontext.RequestID(ctx),
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		s.logger.ErrorContext(ctx, "certificate transfer failed", args...)
		return
	}
	s.logger.WarnContext(ctx, "certificate transfer rejected", args...)
}

func (s *Service) incrementTransfer(err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeForbidden):
			result = "forbidden"
		case dErrors.HasCode(err, dErrors.CodeValidation):
			result = "invalid"
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			result = "not_found"
		default:
			result = "error"
		}
	}
	s.metrics.IncrementTransfer(result)
}

// callerIdentity normalizes the acting principal. The zero identity is passed
// through so certificate construction reports it.
func callerIdentity(caller domain.Address) (domain.Address, error) {
	if caller.IsZero() {
		return caller, nil
	}
	parsed, err := domain.ParseAddress(string(caller))
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity is malformed")
	}
	return parsed, nil
}

var rejectionReasons = map[string]string{
	models.MsgBrandNameEmpty:    "brand_name",
	models.MsgProductEmpty:      "product",
	models.MsgCategoryEmpty:     "category",
	models.MsgPriceNotPositive:  "price",
	models.MsgPeriodNotPositive: "warranty_period",
	models.MsgBuyerZero:         "buyer_zero",
	models.MsgBuyerInvalid:      "buyer_invalid",
}

func rejectionReason(err error) string {
	de, ok := dErrors.As(err)
	if !ok {
		return "unknown"
	}
	if reason, ok := rejectionReasons[de.Message]; ok {
		return reason
	}
	return string(de.Code)
}

// translate maps store failures to domain errors. Domain errors raised inside
// a transaction pass through unchanged.
func translate(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, models.MsgCertificateNotFound)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
