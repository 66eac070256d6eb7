package handler

import (
	"time"
	"unicode/utf8"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
)

// maxFieldLength bounds free-text fields at the transport edge.
const maxFieldLength = 4096

// CreateCertificateRequest is the body of POST /certificates. The seller is
// the authenticated caller and is never taken from the body.
type CreateCertificateRequest struct {
	BrandName      string `json:"brand_name"`
	Product        string `json:"product"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	WarrantyPeriod int64  `json:"warranty_period"`
	BuyerAddress   string `json:"buyer_address"`
}

// Validate only enforces transport limits; business rules run in the service
// so their order and messages stay in one place.
func (r *CreateCertificateRequest) Validate() error {
	for _, field := range []string{r.BrandName, r.Product, r.Category, r.Description, r.BuyerAddress} {
		if len(field) > maxFieldLength || !utf8.ValidString(field) {
			return dErrors.New(dErrors.CodeBadRequest, "request field is too long or not valid UTF-8")
		}
	}
	return nil
}

func (r *CreateCertificateRequest) toModel() models.CreateCertificateRequest {
	return models.CreateCertificateRequest{
		BrandName:      r.BrandName,
		Product:        r.Product,
		Category:       r.Category,
		Description:    r.Description,
		Price:          r.Price,
		WarrantyPeriod: r.WarrantyPeriod,
		BuyerAddress:   r.BuyerAddress,
	}
}

// TransferRequest is the body of POST /certificates/{id}/transfer.
type TransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r *TransferRequest) Validate() error {
	if len(r.From) > maxFieldLength || len(r.To) > maxFieldLength {
		return dErrors.New(dErrors.CodeBadRequest, "address is too long")
	}
	return nil
}

type CreateCertificateResponse struct {
	ID domain.CertificateID `json:"id"`
}

type CertificateResponse struct {
	ID                domain.CertificateID `json:"id"`
	BrandName         string               `json:"brand_name"`
	Product           string               `json:"product"`
	Category          string               `json:"category"`
	Description       string               `json:"description"`
	Price             int64                `json:"price"`
	WarrantyPeriod    int64                `json:"warranty_period"`
	CreationTime      time.Time            `json:"creation_time"`
	CreationTimestamp int64                `json:"creation_timestamp"`
	Seller            domain.Address       `json:"seller"`
	Buyer             domain.Address       `json:"buyer"`
	Owner             domain.Address       `json:"owner"`
	Valid             bool                 `json:"valid"`
	ExpiresAt         time.Time            `json:"expires_at"`
}

type ValidityResponse struct {
	CertificateID domain.CertificateID `json:"certificate_id"`
	Valid         bool                 `json:"valid"`
	ExpiresAt     time.Time            `json:"expires_at"`
	CheckedAt     time.Time            `json:"checked_at"`
}

type OwnerResponse struct {
	CertificateID domain.CertificateID `json:"certificate_id"`
	Owner         domain.Address       `json:"owner"`
}

type CountResponse struct {
	TokenCounter uint64 `json:"token_counter"`
}

type BalanceResponse struct {
	Holder  domain.Address `json:"holder"`
	Balance uint64         `json:"balance"`
}

type ListResponse struct {
	Party        domain.Address        `json:"party"`
	Certificates []CertificateResponse `json:"certificates"`
}

func toCertificateResponse(info *models.CertificateInfo) CertificateResponse {
	return CertificateResponse{
		ID:                info.ID,
		BrandName:         info.BrandName,
		Product:           info.Product,
		Category:          info.Category,
		Description:       info.Description,
		Price:             info.Price,
		WarrantyPeriod:    info.WarrantyPeriod,
		CreationTime:      info.CreationTime,
		CreationTimestamp: info.CreationTime.Unix(),
		Seller:            info.SellerAddress,
		Buyer:             info.BuyerAddress,
		Owner:             info.Owner,
		Valid:             info.Validity.Valid,
		ExpiresAt:         info.Validity.ExpiresAt,
	}
}

func toValidityResponse(id domain.CertificateID, status models.ValidityStatus) ValidityResponse {
	return ValidityResponse{
		CertificateID: id,
		Valid:         status.Valid,
		ExpiresAt:     status.ExpiresAt,
		CheckedAt:     status.CheckedAt,
	}
}
