package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"warranty/internal/auth/token"
	"warranty/internal/warranty/handler"
	"warranty/pkg/domain"
)

const (
	seller = domain.Address("0x00000000000000000000000000000000000000a1")
	buyer  = domain.Address("0x00000000000000000000000000000000000000b2")
)

type fakeClient struct {
	server, token string
	created       handler.CreateCertificateRequest
	transferred   []domain.Address
	certs         []handler.CertificateResponse
	err           error
}

func (f *fakeClient) Create(_ context.Context, req handler.CreateCertificateRequest) (domain.CertificateID, error) {
	f.created = req
	return 7, f.err
}

func (f *fakeClient) Get(_ context.Context, id domain.CertificateID) (*handler.CertificateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &handler.CertificateResponse{ID: id, Product: "Kettle", Seller: seller, Buyer: buyer, Owner: buyer, Valid: true}, nil
}

func (f *fakeClient) Validity(_ context.Context, id domain.CertificateID) (*handler.ValidityResponse, error) {
	return &handler.ValidityResponse{CertificateID: id, Valid: false}, f.err
}

func (f *fakeClient) Owner(_ context.Context, id domain.CertificateID) (*handler.OwnerResponse, error) {
	return &handler.OwnerResponse{CertificateID: id, Owner: buyer}, f.err
}

func (f *fakeClient) Transfer(_ context.Context, _ domain.CertificateID, from, to domain.Address) error {
	f.transferred = []domain.Address{from, to}
	return f.err
}

func (f *fakeClient) Count(context.Context) (uint64, error) { return 12, f.err }

func (f *fakeClient) List(context.Context, domain.Address) ([]handler.CertificateResponse, error) {
	return f.certs, f.err
}

func (f *fakeClient) Balance(context.Context, domain.Address) (uint64, error) { return 3, f.err }

func run(t *testing.T, fake *fakeClient, env map[string]string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(Options{
		NewClient: func(server, tok string) Client {
			fake.server, fake.token = server, tok
			return fake
		},
		Getenv: func(k string) string { return env[k] },
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCreateCommandPassesFlags(t *testing.T) {
	fake := &fakeClient{}
	out, err := run(t, fake, map[string]string{"WARRANTY_TOKEN": "tok"},
		"create", "--brand", "Acme", "--product", "Kettle", "--category", "Kitchen",
		"--price", "4999", "--months", "12", "--buyer", string(buyer))
	require.NoError(t, err)

	assert.Equal(t, "Acme", fake.created.BrandName)
	assert.Equal(t, int64(4999), fake.created.Price)
	assert.Equal(t, int64(12), fake.created.WarrantyPeriod)
	assert.Equal(t, string(buyer), fake.created.BuyerAddress)
	assert.Equal(t, "tok", fake.token)
	assert.Equal(t, "http://localhost:8080", fake.server)
	assert.Contains(t, out, "id:")
	assert.Contains(t, out, "7")
}

func TestServerFlagOverridesEnv(t *testing.T) {
	fake := &fakeClient{}
	_, err := run(t, fake, map[string]string{"WARRANTY_SERVER": "http://env:1"}, "count", "--server", "http://flag:2")
	require.NoError(t, err)
	assert.Equal(t, "http://flag:2", fake.server)
}

func TestGetCommandOutputs(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := run(t, &fakeClient{}, nil, "get", "4", "-o", "json")
		require.NoError(t, err)
		var resp handler.CertificateResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, domain.CertificateID(4), resp.ID)
		assert.Equal(t, buyer, resp.Owner)
	})

	t.Run("yaml uses api field names", func(t *testing.T) {
		out, err := run(t, &fakeClient{}, nil, "get", "4", "-o", "yaml")
		require.NoError(t, err)
		var resp map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "Kettle", resp["product"])
		assert.Equal(t, true, resp["valid"])
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := run(t, &fakeClient{}, nil, "get", "four")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid certificate-id")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, &fakeClient{}, nil, "get", "4", "-o", "xml")
		require.Error(t, err)
	})
}

func TestTransferCommand(t *testing.T) {
	fake := &fakeClient{}
	out, err := run(t, fake, nil, "transfer", "2", "--from", string(buyer), "--to", string(seller))
	require.NoError(t, err)
	assert.Equal(t, []domain.Address{buyer, seller}, fake.transferred)
	assert.Contains(t, out, "transferred")

	_, err = run(t, &fakeClient{}, nil, "transfer", "2", "--from", string(buyer))
	require.Error(t, err, "--to is required")
}

func TestListCommandTable(t *testing.T) {
	fake := &fakeClient{certs: []handler.CertificateResponse{
		{ID: 0, BrandName: "Acme", Product: "Kettle", Seller: seller, Buyer: buyer, Owner: buyer, Valid: true,
			ExpiresAt: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)},
	}}
	out, err := run(t, fake, nil, "list", string(seller))
	require.NoError(t, err)
	assert.Contains(t, out, "BRAND_NAME")
	assert.Contains(t, out, "Kettle")
	assert.Contains(t, out, "2025-01-09")

	out, err = run(t, &fakeClient{}, nil, "list", string(seller))
	require.NoError(t, err)
	assert.Equal(t, "No certificates found.\n", out)
}

func TestErrorsAreWrapped(t *testing.T) {
	fake := &fakeClient{err: &APIError{Status: 404, Code: "not_found", Description: "Certificate does not exist."}}
	_, err := run(t, fake, nil, "status", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Certificate does not exist.")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	out, err := run(t, &fakeClient{}, map[string]string{"JWT_SIGNING_KEY": "k"}, "token", string(seller), "--ttl", "1h")
	require.NoError(t, err)

	caller, err := token.NewJWTService("k", "warranty").Caller(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, seller, caller)

	_, err = run(t, &fakeClient{}, nil, "token", string(seller))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key is required")
}
