package models

import (
	"time"

	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
)

// Validation messages are part of the public contract; existing clients
// match on the literal text.
const (
	MsgBrandNameEmpty      = "Brand name cannot be empty"
	MsgProductEmpty        = "Product name cannot be empty"
	MsgCategoryEmpty       = "Category cannot be empty"
	MsgPriceNotPositive    = "Price must be positive"
	MsgPeriodNotPositive   = "Warranty period must be positive"
	MsgBuyerZero           = "Buyer address cannot be zero"
	MsgBuyerInvalid        = "Buyer address is invalid"
	MsgCertificateNotFound = "Certificate does not exist."
)

// Certificate is the immutable record of a covered purchase.
//
// Invariants:
//   - BrandName, Product and Category are non-empty
//   - Price and WarrantyPeriod are positive
//   - BuyerAddress is a non-zero identity
//   - no field changes after creation; the current holder lives in the
//     ownership ledger, never here
type Certificate struct {
	ID             domain.CertificateID `json:"certificate_id"`
	BrandName      string               `json:"brand_name"`
	Product        string               `json:"product"`
	Category       string               `json:"category"`
	Description    string               `json:"description"`
	Price          int64                `json:"price"`
	WarrantyPeriod int64                `json:"warranty_period"`
	CreationTime   time.Time            `json:"creation_time"`
	SellerAddress  domain.Address       `json:"seller_address"`
	BuyerAddress   domain.Address       `json:"buyer_address"`
}

// CreateCertificateRequest carries the caller-supplied fields of a new certificate.
// Buyer is kept as raw text so that its checks run in their fixed position.
type CreateCertificateRequest struct {
	BrandName      string
	Product        string
	Category       string
	Price          int64
	WarrantyPeriod int64
	BuyerAddress   string
	Description    string
}

// NewCertificate checks the caller, then validates the request in the documented
// order, failing on the first violation, and returns a certificate without an
// id. It has no side effects, so a rejected request never reaches a store.
func NewCertificate(req CreateCertificateRequest, seller domain.Address, now time.Time) (*Certificate, error) {
	if seller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if req.BrandName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, MsgBrandNameEmpty)
	}
	if req.Product == "" {
		return nil, dErrors.New(dErrors.CodeValidation, MsgProductEmpty)
	}
	if req.Category == "" {
		return nil, dErrors.New(dErrors.CodeValidation, MsgCategoryEmpty)
	}
	if req.Price <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, MsgPriceNotPositive)
	}
	if req.WarrantyPeriod <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, MsgPeriodNotPositive)
	}
	if domain.Address(req.BuyerAddress).IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, MsgBuyerZero)
	}
	buyer, err := domain.ParseAddress(req.BuyerAddress)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, MsgBuyerInvalid)
	}

	return &Certificate{
		BrandName:      req.BrandName,
		Product:        req.Product,
		Category:       req.Category,
		Description:    req.Description,
		Price:          req.Price,
		WarrantyPeriod: req.WarrantyPeriod,
		CreationTime:   now.UTC(),
		SellerAddress:  seller,
		BuyerAddress:   buyer,
	}, nil
}

// Involves reports whether party is the seller or the buyer of the certificate.
func (c *Certificate) Involves(party domain.Address) bool {
	return c.SellerAddress.Equal(party) || c.BuyerAddress.Equal(party)
}

// CertificateInfo is the combined read model: the stored record, its current
// holder and its validity at the moment of the query.
type CertificateInfo struct {
	Certificate
	Owner    domain.Address `json:"owner"`
	Validity ValidityStatus `json:"validity"`
}

// ValidityStatus is a computed, never stored, validity answer.
type ValidityStatus struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
	CheckedAt time.Time `json:"checked_at"`
}
