package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// Manager implements interfaces.StorageManager on a single BadgerDB
type Manager struct {
	db            *BadgerDB
	jobStorage    interfaces.JobStorage
	metricStorage interfaces.MetricStorage
	logger        arbor.ILogger
}

// NewManager opens the database and wires the storage services
func NewManager(logger arbor.ILogger, config *common.Config) (*Manager, error) {
	db, err := NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
	}

	return &Manager{
		db:            db,
		jobStorage:    NewJobStorage(db, logger),
		metricStorage: NewMetricStorage(db, logger),
		logger:        logger,
	}, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobStorage
}

func (m *Manager) MetricStorage() interfaces.MetricStorage {
	return m.metricStorage
}

func (m *Manager) Close() error {
	return m.db.Close()
}
