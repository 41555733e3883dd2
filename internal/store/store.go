// Package store persists runs and their dispatch trajectories to a local sqlite file.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"solar-bess-sizer/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("run not found")

const dispatchBatchSize = 200

// Run is the persisted summary of one optimize or evaluate call.
type Run struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Kind      string `gorm:"index"`
	Name      string

	Country       string
	Year          int
	Formulation   string
	PowerCoupling string
	Segments      int
	Periods       int

	Target     float64
	Efficiency float64
	InitialSOC float64

	SolarMW          float64
	StoragePowerMW   float64
	StorageEnergyMWh float64
	TotalCost        float64
	LCOE             float64
	Availability     float64

	Status string
	Error  string
}

// StoredDispatchRow is one period of a run's trajectory.
type StoredDispatchRow struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"index"`

	model.DispatchRow `gorm:"embedded;embeddedPrefix:period_"`
}

const (
	KindOptimize = "optimize"
	KindEvaluate = "evaluate"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Store is safe for concurrent use; writes are serialized.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &StoredDispatchRow{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun stores run and its trajectory in one transaction. An empty run.ID is
// filled with a new identifier.
func (s *Store) SaveRun(run *Run, tr model.Trajectory) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	run.Periods = len(tr)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		if len(tr) == 0 {
			return nil
		}
		rows := make([]StoredDispatchRow, len(tr))
		for i, r := range tr {
			rows[i] = StoredDispatchRow{RunID: run.ID, DispatchRow: r}
		}
		if err := tx.CreateInBatches(rows, dispatchBatchSize).Error; err != nil {
			return fmt.Errorf("save dispatch of run %s: %w", run.ID, err)
		}
		return nil
	})
}

func (s *Store) Run(id string) (*Run, error) {
	var run Run
	err := s.db.First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(limit int) ([]Run, error) {
	var runs []Run
	q := s.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Dispatch returns the stored trajectory of a run in period order.
func (s *Store) Dispatch(id string) (model.Trajectory, error) {
	if _, err := s.Run(id); err != nil {
		return nil, err
	}
	var rows []StoredDispatchRow
	if err := s.db.Where("run_id = ?", id).Order("period_index asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	tr := make(model.Trajectory, len(rows))
	for i, r := range rows {
		tr[i] = r.DispatchRow
	}
	return tr, nil
}

// DeleteRun removes a run and its trajectory.
func (s *Store) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&StoredDispatchRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Run{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}
