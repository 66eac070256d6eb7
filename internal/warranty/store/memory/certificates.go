package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	"warranty/pkg/platform/sentinel"
)

// CertificateStore keeps certificates in a slice indexed by id, so the next
// id is always the slice length.
type CertificateStore struct {
	mu       sync.RWMutex
	certs    []models.Certificate
	instance string
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{instance: uuid.NewString()}
}

// InstanceID identifies this store for its lifetime. Every new store, and so
// every process restart, gets a different one.
func (s *CertificateStore) InstanceID() string {
	return s.instance
}

func (s *CertificateStore) Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.CertificateID(len(s.certs))
	cert.ID = id
	s.certs = append(s.certs, *cert)
	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.certs = s.certs[:id]
	})
	return id, nil
}

func (s *CertificateStore) FindByID(_ context.Context, id domain.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id >= domain.CertificateID(len(s.certs)) {
		return nil, fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
	}
	cert := s.certs[id]
	return &cert, nil
}

func (s *CertificateStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.certs)), nil
}

func (s *CertificateStore) ListByParty(_ context.Context, party domain.Address) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Certificate
	for i := range s.certs {
		if s.certs[i].Involves(party) {
			cert := s.certs[i]
			out = append(out, &cert)
		}
	}
	return out, nil
}
