package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/repository"
)

// SeverityCounts holds open alert counts for each severity level
type SeverityCounts struct {
	Critical int64 `json:"critical"`
	High     int64 `json:"high"`
	Medium   int64 `json:"medium"`
	Low      int64 `json:"low"`
}

// AlertService handles alert query logic
type AlertService interface {
	GetRecentAlerts(ctx context.Context, limit int) ([]*models.AlertInstance, error)
	GetDeviceSensorAlerts(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error)
	GetTotalAlertsCount(ctx context.Context) (int64, error)
	GetOpenAlertsCount(ctx context.Context) (int64, error)
	GetSeverityCounts(ctx context.Context) (*SeverityCounts, error)
	GetDeliveries(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error)
}

type alertService struct {
	alerts        repository.AlertRepo
	notifications repository.NotificationRepo
}

// NewAlertService creates a new alert service
func NewAlertService(alerts repository.AlertRepo, notifications repository.NotificationRepo) AlertService {
	return &alertService{
		alerts:        alerts,
		notifications: notifications,
	}
}

func (s *alertService) GetRecentAlerts(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.alerts.GetRecent(ctx, limit)
}

func (s *alertService) GetDeviceSensorAlerts(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.alerts.ListForDeviceSensor(ctx, deviceSensorID, limit)
}

func (s *alertService) GetTotalAlertsCount(ctx context.Context) (int64, error) {
	return s.alerts.Count(ctx)
}

func (s *alertService) GetOpenAlertsCount(ctx context.Context) (int64, error) {
	return s.alerts.CountOpen(ctx)
}

func (s *alertService) GetSeverityCounts(ctx context.Context) (*SeverityCounts, error) {
	critical, err := s.alerts.CountBySeverity(ctx, models.SeverityCritical)
	if err != nil {
		return nil, err
	}
	high, err := s.alerts.CountBySeverity(ctx, models.SeverityHigh)
	if err != nil {
		return nil, err
	}
	medium, err := s.alerts.CountBySeverity(ctx, models.SeverityMedium)
	if err != nil {
		return nil, err
	}
	low, err := s.alerts.CountBySeverity(ctx, models.SeverityLow)
	if err != nil {
		return nil, err
	}
	return &SeverityCounts{
		Critical: critical,
		High:     high,
		Medium:   medium,
		Low:      low,
	}, nil
}

func (s *alertService) GetDeliveries(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error) {
	return s.notifications.ListByAlertInstance(ctx, alertInstanceID)
}
