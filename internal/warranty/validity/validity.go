// Package validity computes whether a warranty certificate is still in force.
//
// A warranty period is counted in fixed 30-day months of 2,592,000 seconds,
// not calendar months. A certificate is valid up to and including its expiry
// second and invalid from the following second on. Times are compared at
// whole-second resolution.
package validity

import (
	"context"
	"math"
	"time"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
)

// MonthSeconds is the length of one warranty month.
const MonthSeconds int64 = 30 * 24 * 60 * 60

// MaxExpiry is where expiry arithmetic saturates. It is the last second that
// still renders as an RFC 3339 timestamp.
var MaxExpiry = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Expiry returns creation + periodMonths*MonthSeconds, saturating at MaxExpiry.
// A non-positive period expires at creation.
func Expiry(creation time.Time, periodMonths int64) time.Time {
	start := creation.Unix()
	limit := MaxExpiry.Unix()
	if start >= limit {
		return MaxExpiry
	}
	if periodMonths <= 0 {
		return time.Unix(start, 0).UTC()
	}
	if periodMonths > (limit-start)/MonthSeconds || periodMonths > math.MaxInt64/MonthSeconds {
		return MaxExpiry
	}
	return time.Unix(start+periodMonths*MonthSeconds, 0).UTC()
}

// IsValid reports whether now falls within the validity window.
func IsValid(creation time.Time, periodMonths int64, now time.Time) bool {
	return now.Unix() <= Expiry(creation, periodMonths).Unix()
}

// Check computes the validity status of cert at now.
func Check(cert *models.Certificate, now time.Time) models.ValidityStatus {
	expiry := Expiry(cert.CreationTime, cert.WarrantyPeriod)
	return models.ValidityStatus{
		Valid:     now.Unix() <= expiry.Unix(),
		ExpiresAt: expiry,
		CheckedAt: now.UTC(),
	}
}

// CertificateFinder is the read side of the certificate store.
type CertificateFinder interface {
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
}

// Oracle answers validity questions for stored certificates. It never writes
// and never remembers an answer.
type Oracle struct {
	certificates CertificateFinder
}

func NewOracle(certificates CertificateFinder) *Oracle {
	return &Oracle{certificates: certificates}
}

// IsValid looks up id and checks it at now. Lookup errors are returned as-is.
func (o *Oracle) IsValid(ctx context.Context, id domain.CertificateID, now time.Time) (models.ValidityStatus, error) {
	cert, err := o.certificates.FindByID(ctx, id)
	if err != nil {
		return models.ValidityStatus{}, err
	}
	return Check(cert, now), nil
}
