package models_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
)

var _ = Describe("AlertInstance", func() {
	var rule *models.SensorRule
	var now time.Time

	BeforeEach(func() {
		rule = &models.SensorRule{
			ID:              uuid.New(),
			DeviceSensorID:  "greenhouse-1:4",
			RuleName:        "Temperature too high",
			Severity:        models.SeverityHigh,
			CooldownMinutes: 15,
		}
		now = time.Now()
	})

	Describe("NewAlertInstance", func() {
		It("should open an instance in VIOLATING state", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)

			Expect(instance.ID.String()).NotTo(BeEmpty())
			Expect(instance.RuleID).To(Equal(rule.ID))
			Expect(instance.DeviceSensorID).To(Equal("greenhouse-1:4"))
			Expect(instance.Severity).To(Equal(models.SeverityHigh))
			Expect(instance.State).To(Equal(models.StateViolating))
			Expect(instance.OpenedAt).To(Equal(now))
			Expect(instance.FireSequence).To(BeZero())
			Expect(instance.IsOpen()).To(BeTrue())
		})
	})

	Describe("Fire", func() {
		It("should move straight into COOLDOWN and advance the fire sequence", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)

			instance.Fire(now)

			Expect(instance.State).To(Equal(models.StateCooldown))
			Expect(instance.FireSequence).To(Equal(int64(1)))
			Expect(*instance.LastFiredAt).To(Equal(now))
			Expect(instance.ResolvedAt).To(BeNil())
		})

		It("should advance the fire sequence on every re-fire", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)

			instance.Fire(now)
			instance.Fire(now.Add(20 * time.Minute))

			Expect(instance.FireSequence).To(Equal(int64(2)))
			Expect(instance.LastFiredAt.Sub(now)).To(Equal(20 * time.Minute))
		})
	})

	Describe("Resolve", func() {
		It("should return to NORMAL and stamp resolved_at", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)
			instance.Fire(now)
			resolvedAt := now.Add(30 * time.Minute)

			instance.Resolve(resolvedAt)

			Expect(instance.State).To(Equal(models.StateNormal))
			Expect(instance.ConsecutiveCount).To(BeZero())
			Expect(*instance.ResolvedAt).To(Equal(resolvedAt))
			Expect(instance.IsOpen()).To(BeFalse())
		})
	})

	Describe("CooldownElapsed", func() {
		It("should report elapsed when the instance never fired", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)

			Expect(instance.CooldownElapsed(rule, now)).To(BeTrue())
		})

		It("should suppress inside the cooldown window", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)
			instance.Fire(now)

			Expect(instance.CooldownElapsed(rule, now.Add(14*time.Minute))).To(BeFalse())
		})

		It("should allow a re-fire exactly at the cooldown boundary", func() {
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)
			instance.Fire(now)

			Expect(instance.CooldownElapsed(rule, now.Add(15*time.Minute))).To(BeTrue())
		})

		It("should treat a zero cooldown as immediately elapsed", func() {
			rule.CooldownMinutes = 0
			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, now)
			instance.Fire(now)

			Expect(instance.CooldownElapsed(rule, now)).To(BeTrue())
		})
	})
})

var _ = Describe("SensorRule", func() {
	Describe("ConditionTree", func() {
		It("should parse complex_conditions at most once", func() {
			rule := &models.SensorRule{
				RuleType:          models.RuleTypeComplex,
				ComplexConditions: []byte(`{"op": ">", "value": 50}`),
			}

			first, err := rule.ConditionTree()
			Expect(err).NotTo(HaveOccurred())

			second, err := rule.ConditionTree()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
		})

		It("should surface the parse error on every call", func() {
			rule := &models.SensorRule{
				RuleType:          models.RuleTypeComplex,
				ComplexConditions: []byte(`{"op": "bad", "value": 1}`),
			}

			_, err := rule.ConditionTree()
			Expect(err).To(HaveOccurred())

			_, err = rule.ConditionTree()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("defaults", func() {
		It("should fall back to a five minute evaluation window", func() {
			rule := &models.SensorRule{}
			Expect(rule.EvaluationWindow()).To(Equal(5 * time.Minute))
		})

		It("should clamp required violations to at least one", func() {
			rule := &models.SensorRule{ConsecutiveViolationsRequired: 0}
			Expect(rule.RequiredViolations()).To(Equal(1))
		})

		It("should treat a negative cooldown as zero", func() {
			rule := &models.SensorRule{CooldownMinutes: -3}
			Expect(rule.Cooldown()).To(BeZero())
		})
	})
})

var _ = Describe("Reading", func() {
	It("should build the device sensor key from device id and pin", func() {
		reading := models.Reading{DeviceID: "greenhouse-1", SensorPin: 4}
		Expect(reading.DeviceSensorID()).To(Equal("greenhouse-1:4"))
	})
})

var _ = Describe("NotificationRequest", func() {
	It("should build the idempotency key from instance, sequence, and channel", func() {
		id := uuid.New()
		req := models.NotificationRequest{
			AlertInstanceID: id,
			FireSequence:    3,
			Channel:         models.ChannelEmail,
		}

		Expect(req.IdempotencyKey()).To(Equal(id.String() + ":3:email"))
	})
})
