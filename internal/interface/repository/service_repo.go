package repository

import (
	"context"
	"errors"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/lifecycle"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// packageIDLock serialises package id assignment across app instances
const packageIDLock int64 = 52180417

// GormServiceRepository implements the ServiceRepository interface
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GORM service repository
func NewGormServiceRepository(db *gorm.DB) repository.ServiceRepository {
	return &GormServiceRepository{
		db: db,
	}
}

// ProviderServices GORM model for database mapping
type ProviderServices struct {
	ID            string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	PackageID     int        `gorm:"column:package_id;uniqueIndex"`
	PriestName    string     `gorm:"column:priest_name;not null"`
	AvailableDate string     `gorm:"column:available_date;type:date;not null;index"`
	ChurchVenue   string     `gorm:"column:church_venue;not null"`
	Status        string     `gorm:"column:status;type:varchar(16);not null;index"`
	BookBy        *string    `gorm:"column:book_by"`
	BookDate      *time.Time `gorm:"column:book_date"`
	CreatedAt     time.Time  `gorm:"column:created_at;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

// TableName overrides the default table name
func (ProviderServices) TableName() string {
	return "provider_services"
}

// AutoMigrate creates or updates the tables backing both repositories
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ProviderServices{}, &Notifications{})
}

func toServiceEntity(m ProviderServices) (*entity.Service, error) {
	date, err := utils.ParseDate(m.AvailableDate)
	if err != nil {
		return nil, err
	}
	return &entity.Service{
		ID:            m.ID,
		PackageID:     m.PackageID,
		PriestName:    m.PriestName,
		AvailableDate: date,
		ChurchVenue:   m.ChurchVenue,
		Status:        entity.Status(m.Status),
		BookBy:        m.BookBy,
		BookDate:      m.BookDate,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func toServiceEntities(rows []ProviderServices) ([]*entity.Service, error) {
	services := make([]*entity.Service, 0, len(rows))
	for _, row := range rows {
		svc, err := toServiceEntity(row)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

// Create stores a new service and its creation notice in one transaction.
// The advisory lock makes read-max-then-insert safe against concurrent creators.
func (r *GormServiceRepository) Create(ctx context.Context, svc *entity.Service, notify repository.NotifyFunc) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", packageIDLock).Error; err != nil {
			return err
		}

		maxID, found, err := maxPackageID(tx)
		if err != nil {
			return err
		}
		if found {
			svc.PackageID = lifecycle.NextPackageID(maxID)
		} else {
			svc.PackageID = lifecycle.NextPackageID()
		}

		if svc.ID == "" {
			svc.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		svc.CreatedAt = now
		svc.UpdatedAt = now

		model := ProviderServices{
			ID:            svc.ID,
			PackageID:     svc.PackageID,
			PriestName:    svc.PriestName,
			AvailableDate: utils.FormatDate(svc.AvailableDate),
			ChurchVenue:   svc.ChurchVenue,
			Status:        string(svc.Status),
			BookBy:        svc.BookBy,
			BookDate:      svc.BookDate,
			CreatedAt:     svc.CreatedAt,
			UpdatedAt:     svc.UpdatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}

		if notify == nil {
			return nil
		}
		if n := notify(svc); n != nil {
			return insertNotification(tx, n)
		}
		return nil
	})
	return entity.NewStoreError("create service", err)
}

// FindByID finds a service by its storage id
func (r *GormServiceRepository) FindByID(ctx context.Context, id string) (*entity.Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entity.ErrServiceNotFound
	}

	var row ProviderServices
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, entity.ErrServiceNotFound
	}
	if result.Error != nil {
		return nil, entity.NewStoreError("find service", result.Error)
	}

	svc, err := toServiceEntity(row)
	if err != nil {
		return nil, entity.NewStoreError("decode service", err)
	}
	return svc, nil
}

// List returns services newest first
func (r *GormServiceRepository) List(ctx context.Context, filter entity.ServiceFilter) ([]*entity.Service, error) {
	query := r.db.WithContext(ctx).Model(&ProviderServices{}).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.DateBefore != nil {
		query = query.Where("available_date < ?", utils.FormatDate(*filter.DateBefore))
	}
	if filter.DateFrom != nil {
		query = query.Where("available_date >= ?", utils.FormatDate(*filter.DateFrom))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []ProviderServices
	if err := query.Find(&rows).Error; err != nil {
		return nil, entity.NewStoreError("list services", err)
	}

	services, err := toServiceEntities(rows)
	if err != nil {
		return nil, entity.NewStoreError("decode services", err)
	}
	return services, nil
}

// MaxPackageID returns the highest assigned package id
func (r *GormServiceRepository) MaxPackageID(ctx context.Context) (int, bool, error) {
	maxID, found, err := maxPackageID(r.db.WithContext(ctx))
	if err != nil {
		return 0, false, entity.NewStoreError("max package id", err)
	}
	return maxID, found, nil
}

func maxPackageID(tx *gorm.DB) (int, bool, error) {
	var maxID int
	row := tx.Model(&ProviderServices{}).Select("COALESCE(MAX(package_id), 0)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, false, err
	}
	return maxID, maxID > 0, nil
}

// Transition applies update as a compare-and-swap on the stored status and
// records the notification in the same transaction
func (r *GormServiceRepository) Transition(ctx context.Context, id string, from entity.Status, update entity.ServiceUpdate, notification *entity.Notification) error {
	if _, err := uuid.Parse(id); err != nil {
		return entity.ErrServiceNotFound
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var matched int64
		if update.IsZero() {
			if err := tx.Model(&ProviderServices{}).
				Where("id = ? AND status = ?", id, string(from)).
				Count(&matched).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&ProviderServices{}).
				Where("id = ? AND status = ?", id, string(from)).
				Updates(updateColumns(update))
			if result.Error != nil {
				return result.Error
			}
			matched = result.RowsAffected
		}

		if matched == 0 {
			return missingOrConflict(tx, id)
		}

		if notification == nil {
			return nil
		}
		return insertNotification(tx, notification)
	})

	if errors.Is(err, entity.ErrServiceNotFound) || errors.Is(err, entity.ErrConcurrentUpdate) {
		return err
	}
	return entity.NewStoreError("transition service", err)
}

func updateColumns(update entity.ServiceUpdate) map[string]interface{} {
	columns := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if update.Status != "" {
		columns["status"] = string(update.Status)
	}
	if update.ClearBookBy {
		columns["book_by"] = nil
	} else if update.BookBy != nil {
		columns["book_by"] = *update.BookBy
	}
	if update.ClearBookDate {
		columns["book_date"] = nil
	} else if update.BookDate != nil {
		columns["book_date"] = *update.BookDate
	}
	return columns
}

// missingOrConflict explains why a conditional write matched no rows
func missingOrConflict(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&ProviderServices{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return entity.ErrServiceNotFound
	}
	return entity.ErrConcurrentUpdate
}

// FindExpired returns available services dated before today, oldest first.
// Paging is keyset based on (available_date, id).
func (r *GormServiceRepository) FindExpired(ctx context.Context, today time.Time, after *entity.ServiceCursor, limit int) ([]*entity.Service, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND available_date < ?", string(entity.StatusAvailable), utils.FormatDate(today))
	if after != nil {
		query = query.Where("(available_date, id) > (?, ?)", utils.FormatDate(after.AvailableDate), after.ID)
	}
	query = query.Order("available_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []ProviderServices
	if err := query.Find(&rows).Error; err != nil {
		return nil, entity.NewStoreError("find expired services", err)
	}

	services, err := toServiceEntities(rows)
	if err != nil {
		return nil, entity.NewStoreError("decode services", err)
	}
	return services, nil
}
