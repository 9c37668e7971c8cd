package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/service"
)

// MockAlertRepo is a mock implementation of AlertRepo for testing
type MockAlertRepo struct {
	GetOpenFunc             func(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error)
	ListOpenByRuleFunc      func(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error)
	SaveFunc                func(ctx context.Context, instance *models.AlertInstance) error
	GetRecentFunc           func(ctx context.Context, limit int) ([]*models.AlertInstance, error)
	ListForDeviceSensorFunc func(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error)
	CountFunc               func(ctx context.Context) (int64, error)
	CountOpenFunc           func(ctx context.Context) (int64, error)
	CountBySeverityFunc     func(ctx context.Context, severity string) (int64, error)
	DeleteByRuleFunc        func(ctx context.Context, ruleID uuid.UUID) error
}

func (m *MockAlertRepo) GetOpen(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error) {
	if m.GetOpenFunc != nil {
		return m.GetOpenFunc(ctx, ruleID, deviceSensorID)
	}
	return nil, nil
}

func (m *MockAlertRepo) ListOpenByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error) {
	if m.ListOpenByRuleFunc != nil {
		return m.ListOpenByRuleFunc(ctx, ruleID)
	}
	return nil, nil
}

func (m *MockAlertRepo) Save(ctx context.Context, instance *models.AlertInstance) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, instance)
	}
	return nil
}

func (m *MockAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
	if m.GetRecentFunc != nil {
		return m.GetRecentFunc(ctx, limit)
	}
	return []*models.AlertInstance{}, nil
}

func (m *MockAlertRepo) ListForDeviceSensor(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error) {
	if m.ListForDeviceSensorFunc != nil {
		return m.ListForDeviceSensorFunc(ctx, deviceSensorID, limit)
	}
	return []*models.AlertInstance{}, nil
}

func (m *MockAlertRepo) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockAlertRepo) CountOpen(ctx context.Context) (int64, error) {
	if m.CountOpenFunc != nil {
		return m.CountOpenFunc(ctx)
	}
	return 0, nil
}

func (m *MockAlertRepo) CountBySeverity(ctx context.Context, severity string) (int64, error) {
	if m.CountBySeverityFunc != nil {
		return m.CountBySeverityFunc(ctx, severity)
	}
	return 0, nil
}

func (m *MockAlertRepo) DeleteByRule(ctx context.Context, ruleID uuid.UUID) error {
	if m.DeleteByRuleFunc != nil {
		return m.DeleteByRuleFunc(ctx, ruleID)
	}
	return nil
}

// MockNotificationRepo is a mock implementation of NotificationRepo
type MockNotificationRepo struct {
	SaveFunc                func(ctx context.Context, record *models.NotificationRecord) error
	ListByAlertInstanceFunc func(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error)
}

func (m *MockNotificationRepo) Save(ctx context.Context, record *models.NotificationRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, record)
	}
	return nil
}

func (m *MockNotificationRepo) ListByAlertInstance(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error) {
	if m.ListByAlertInstanceFunc != nil {
		return m.ListByAlertInstanceFunc(ctx, alertInstanceID)
	}
	return []*models.NotificationRecord{}, nil
}

var _ = Describe("AlertService", func() {
	var (
		mockAlerts        *MockAlertRepo
		mockNotifications *MockNotificationRepo
		alertService      service.AlertService
		ctx               context.Context
	)

	BeforeEach(func() {
		mockAlerts = &MockAlertRepo{}
		mockNotifications = &MockNotificationRepo{}
		alertService = service.NewAlertService(mockAlerts, mockNotifications)
		ctx = context.Background()
	})

	Describe("GetRecentAlerts", func() {
		It("should pass the limit through to the repository", func() {
			var gotLimit int
			mockAlerts.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
				gotLimit = limit
				return []*models.AlertInstance{}, nil
			}

			_, err := alertService.GetRecentAlerts(ctx, 25)

			Expect(err).NotTo(HaveOccurred())
			Expect(gotLimit).To(Equal(25))
		})

		It("should clamp a non-positive limit to the default", func() {
			var gotLimit int
			mockAlerts.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
				gotLimit = limit
				return nil, nil
			}

			_, err := alertService.GetRecentAlerts(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(gotLimit).To(Equal(100))
		})

		It("should clamp an oversized limit to the default", func() {
			var gotLimit int
			mockAlerts.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
				gotLimit = limit
				return nil, nil
			}

			_, err := alertService.GetRecentAlerts(ctx, 5000)

			Expect(err).NotTo(HaveOccurred())
			Expect(gotLimit).To(Equal(100))
		})

		It("should surface repository errors", func() {
			mockAlerts.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
				return nil, errors.New("database down")
			}

			_, err := alertService.GetRecentAlerts(ctx, 10)
			Expect(err).To(MatchError(ContainSubstring("database down")))
		})
	})

	Describe("GetDeviceSensorAlerts", func() {
		It("should query by device sensor id", func() {
			var gotID string
			mockAlerts.ListForDeviceSensorFunc = func(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error) {
				gotID = deviceSensorID
				return []*models.AlertInstance{
					{ID: uuid.New(), DeviceSensorID: deviceSensorID, OpenedAt: time.Now()},
				}, nil
			}

			alerts, err := alertService.GetDeviceSensorAlerts(ctx, "greenhouse-1:4", 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(gotID).To(Equal("greenhouse-1:4"))
			Expect(alerts).To(HaveLen(1))
		})
	})

	Describe("GetSeverityCounts", func() {
		It("should aggregate counts for every severity", func() {
			counts := map[string]int64{
				models.SeverityCritical: 1,
				models.SeverityHigh:     2,
				models.SeverityMedium:   3,
				models.SeverityLow:      4,
			}
			mockAlerts.CountBySeverityFunc = func(ctx context.Context, severity string) (int64, error) {
				return counts[severity], nil
			}

			got, err := alertService.GetSeverityCounts(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(got.Critical).To(Equal(int64(1)))
			Expect(got.High).To(Equal(int64(2)))
			Expect(got.Medium).To(Equal(int64(3)))
			Expect(got.Low).To(Equal(int64(4)))
		})

		It("should surface the first severity error", func() {
			mockAlerts.CountBySeverityFunc = func(ctx context.Context, severity string) (int64, error) {
				return 0, errors.New("count failed")
			}

			_, err := alertService.GetSeverityCounts(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetDeliveries", func() {
		It("should return the per-channel delivery records", func() {
			instanceID := uuid.New()
			mockNotifications.ListByAlertInstanceFunc = func(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error) {
				Expect(alertInstanceID).To(Equal(instanceID))
				return []*models.NotificationRecord{
					{ID: uuid.New(), AlertInstanceID: instanceID, Channel: models.ChannelEmail, Status: models.DeliveryDelivered},
					{ID: uuid.New(), AlertInstanceID: instanceID, Channel: models.ChannelSMS, Status: models.DeliveryFailed},
				}, nil
			}

			records, err := alertService.GetDeliveries(ctx, instanceID)

			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})
	})
})
