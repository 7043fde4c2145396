package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/models"
	"gorm.io/gorm"
)

var ErrApplicationNotFound = errors.New("application not found")

type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{
		DB: db,
	}
}

func (s *ApplicationService) List(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if err := s.DB.WithContext(ctx).Order("id").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *ApplicationService) Get(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationService) Create(ctx context.Context, req *dtos.ApplicationRequest) (*models.Application, error) {
	app, err := applicationFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// Update overwrites every editable field and logs an event when the status changes.
func (s *ApplicationService) Update(ctx context.Context, id uint, req *dtos.ApplicationRequest) (*models.Application, error) {
	fields, err := applicationFromRequest(req)
	if err != nil {
		return nil, err
	}

	var app models.Application
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}
		prevStatus := app.Status

		app.Company = fields.Company
		app.Position = fields.Position
		app.JobLink = fields.JobLink
		app.Status = fields.Status
		app.AppliedDate = fields.AppliedDate
		app.Notes = fields.Notes
		if err := tx.Save(&app).Error; err != nil {
			return err
		}

		if prevStatus != app.Status {
			return tx.Create(&models.ApplicationEvent{
				ApplicationID: app.ID,
				EventType:     models.EventStatusUpdate,
				Details:       fmt.Sprintf("Status changed from %s to %s.", prevStatus, app.Status),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationService) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Application{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// ChangeStatus moves an application to a new status and records why.
func (s *ApplicationService) ChangeStatus(ctx context.Context, app *models.Application, status, eventType, details string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(app).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Create(&models.ApplicationEvent{
			ApplicationID: app.ID,
			EventType:     eventType,
			Details:       details,
		}).Error
	})
}

// ActiveByCompany returns applications for a company that can still change status.
func (s *ApplicationService) ActiveByCompany(ctx context.Context, company string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.WithContext(ctx).
		Where("LOWER(company) = LOWER(?) AND status NOT IN ?", company, []string{models.StatusOffer, models.StatusRejected}).
		Order("id").
		Find(&apps).Error
	return apps, err
}

// Companies lists the distinct company names being tracked.
func (s *ApplicationService) Companies(ctx context.Context) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.Application{}).Distinct().Pluck("company", &names).Error
	return names, err
}

func applicationFromRequest(req *dtos.ApplicationRequest) (models.Application, error) {
	app := models.Application{
		Company:  req.Company,
		Position: req.Position,
		JobLink:  req.JobLink,
		Status:   req.Status,
		Notes:    req.Notes,
	}
	if app.Status == "" {
		app.Status = models.StatusApplied
	}
	if req.AppliedDate != "" {
		d, err := time.Parse(time.DateOnly, req.AppliedDate)
		if err != nil {
			return app, fmt.Errorf("invalid applied_date %q: %w", req.AppliedDate, err)
		}
		app.AppliedDate = &d
	}
	return app, nil
}
