package repositories

import (
	"context"
	"sync"

	"resqall/models"

	"github.com/sirupsen/logrus"
)

// MockSOSRepository keeps records in memory. Used when no persistence
// backend is configured so development environments still exercise the
// persist channel.
type MockSOSRepository struct {
	mu      sync.Mutex
	records []models.SOSRecord
}

func NewMockSOSRepository() *MockSOSRepository {
	return &MockSOSRepository{}
}

func (mr *MockSOSRepository) Available() bool {
	return true
}

func (mr *MockSOSRepository) SaveSOS(ctx context.Context, record models.SOSRecord) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.records = append(mr.records, record)
	logrus.Infof("MOCK PERSIST: SOS record for user %s (%d total)", record.UserID, len(mr.records))
	return nil
}

// Records returns a copy of everything saved so far.
func (mr *MockSOSRepository) Records() []models.SOSRecord {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	out := make([]models.SOSRecord, len(mr.records))
	copy(out, mr.records)
	return out
}
