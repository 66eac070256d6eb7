package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warranty/internal/auth/token"
	"warranty/internal/warranty/handler"
	"warranty/internal/warranty/service"
	"warranty/internal/warranty/store/memory"
	"warranty/internal/warranty/validity"
	"warranty/pkg/domain"
	"warranty/pkg/testutil"
)

const other = domain.Address("0x00000000000000000000000000000000000000c3")

func newTestServer(t *testing.T, clock *testutil.StubClock) (*httptest.Server, *token.JWTService) {
	t.Helper()
	jwt := token.NewJWTService("test-key", "warranty")
	svc := service.New(memory.NewCertificateStore(), memory.NewOwnershipLedger(), memory.NewRunner(),
		service.WithClock(clock),
	)
	r := chi.NewRouter()
	handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), jwt).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, jwt
}

func mint(t *testing.T, jwt *token.JWTService, addr domain.Address) string {
	t.Helper()
	tok, err := jwt.Issue(addr, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestHTTPClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()
	srv, jwt := newTestServer(t, clock)

	asSeller := NewHTTPClient(srv.URL+"/", mint(t, jwt, seller))
	asBuyer := NewHTTPClient(srv.URL, mint(t, jwt, buyer))
	anonymous := NewHTTPClient(srv.URL, "")

	id, err := asSeller.Create(ctx, handler.CreateCertificateRequest{
		BrandName: "Acme", Product: "Kettle", Category: "Kitchen",
		Price: 4999, WarrantyPeriod: 1, BuyerAddress: string(buyer),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CertificateID(0), id)

	count, err := anonymous.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	cert, err := anonymous.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, seller, cert.Seller)
	assert.Equal(t, buyer, cert.Buyer)
	assert.Equal(t, seller, cert.Owner, "the issuing seller holds the certificate first")
	assert.True(t, cert.Valid)

	err = asBuyer.Transfer(ctx, id, buyer, other)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	require.NoError(t, asSeller.Transfer(ctx, id, seller, buyer))
	require.NoError(t, asBuyer.Transfer(ctx, id, buyer, other))
	owner, err := anonymous.Owner(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, other, owner.Owner)

	cert, err = anonymous.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buyer, cert.Buyer, "transfers never rewrite the buyer")

	balance, err := anonymous.Balance(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance)

	listed, err := anonymous.List(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, other, listed[0].Owner)

	clock.Advance(time.Duration(validity.MonthSeconds)*time.Second + time.Second)
	status, err := anonymous.Validity(ctx, id)
	require.NoError(t, err)
	assert.False(t, status.Valid)
}

func TestHTTPClientErrors(t *testing.T) {
	ctx := context.Background()
	srv, jwt := newTestServer(t, testutil.FixedClock())

	_, err := NewHTTPClient(srv.URL, "").Get(ctx, 42)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "Certificate does not exist.", apiErr.Description)

	_, err = NewHTTPClient(srv.URL, "").Create(ctx, handler.CreateCertificateRequest{BrandName: "Acme"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = NewHTTPClient(srv.URL, mint(t, jwt, seller)).Create(ctx, handler.CreateCertificateRequest{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, "Brand name cannot be empty", apiErr.Description)
}
