package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/repository"
	"github.com/sensor-platform/alert-engine/internal/service"
)

// MockStateCleaner records ClearRule calls
type MockStateCleaner struct {
	mu      sync.Mutex
	cleared []uuid.UUID
}

func (m *MockStateCleaner) ClearRule(ctx context.Context, ruleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, ruleID)
	return nil
}

func (m *MockStateCleaner) Cleared() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, len(m.cleared))
	copy(out, m.cleared)
	return out
}

func float64Ptr(v float64) *float64 { return &v }

func validSimpleRule() *models.SensorRule {
	return &models.SensorRule{
		DeviceSensorID:       "greenhouse-1:4",
		RuleName:             "Temperature too high",
		RuleType:             models.RuleTypeSimple,
		Condition:            models.ConditionGreaterThan,
		ThresholdValue:       float64Ptr(30),
		Severity:             models.SeverityHigh,
		Enabled:              true,
		NotificationChannels: []string{models.ChannelEmail},
	}
}

var _ = Describe("RuleService", func() {
	var (
		ctx         context.Context
		rules       repository.RuleRepo
		templates   repository.TemplateRepo
		alerts      repository.AlertRepo
		cleaner     *MockStateCleaner
		ruleService service.RuleService
	)

	BeforeEach(func() {
		ctx = context.Background()
		rules = repository.NewInMemoryRuleRepo()
		templates = repository.NewInMemoryTemplateRepo()
		alerts = repository.NewInMemoryAlertRepo()
		cleaner = &MockStateCleaner{}
		ruleService = service.NewRuleService(rules, templates, alerts, cleaner)
	})

	Describe("CreateRule", func() {
		It("should create a valid rule and apply defaults", func() {
			rule := validSimpleRule()

			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())
			Expect(rule.ID).NotTo(Equal(uuid.Nil))
			Expect(rule.EvaluationWindowMinutes).To(Equal(5))
			Expect(rule.ConsecutiveViolationsRequired).To(Equal(1))

			stored, err := rules.GetByID(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeNil())
		})

		It("should reject a rule without a name", func() {
			rule := validSimpleRule()
			rule.RuleName = ""

			err := ruleService.CreateRule(ctx, rule)

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Reason).To(ContainSubstring("rule_name"))
		})

		It("should reject a rule without notification channels", func() {
			rule := validSimpleRule()
			rule.NotificationChannels = nil

			err := ruleService.CreateRule(ctx, rule)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown notification channel", func() {
			rule := validSimpleRule()
			rule.NotificationChannels = []string{"pager"}

			err := ruleService.CreateRule(ctx, rule)

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("should reject a threshold condition without a threshold value", func() {
			rule := validSimpleRule()
			rule.ThresholdValue = nil

			err := ruleService.CreateRule(ctx, rule)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a range condition with min above max", func() {
			rule := validSimpleRule()
			rule.Condition = models.ConditionBetween
			rule.ThresholdValue = nil
			rule.ThresholdMin = float64Ptr(30)
			rule.ThresholdMax = float64Ptr(10)

			err := ruleService.CreateRule(ctx, rule)

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Reason).To(ContainSubstring("threshold_min exceeds"))
		})

		It("should reject a complex rule with a malformed condition tree", func() {
			rule := validSimpleRule()
			rule.RuleType = models.RuleTypeComplex
			rule.ComplexConditions = []byte(`{"op": "bad", "value": 1}`)

			err := ruleService.CreateRule(ctx, rule)

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Unwrap()).To(HaveOccurred())
		})

		It("should accept a complex rule with a valid condition tree", func() {
			rule := validSimpleRule()
			rule.RuleType = models.RuleTypeComplex
			rule.Condition = ""
			rule.ThresholdValue = nil
			rule.ComplexConditions = []byte(`{"and": [{"op": ">", "value": 18}, {"op": "<", "value": 26}]}`)

			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())
		})

		It("should reject a negative cooldown", func() {
			rule := validSimpleRule()
			rule.CooldownMinutes = -1

			err := ruleService.CreateRule(ctx, rule)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CreateFromTemplate", func() {
		BeforeEach(func() {
			Expect(ruleService.EnsureDefaultTemplates(ctx)).To(Succeed())
		})

		It("should materialize a rule from a template", func() {
			rule, err := ruleService.CreateFromTemplate(ctx, "humidity_high", "greenhouse-1:4", "Greenhouse humidity", "temperature_humidity")

			Expect(err).NotTo(HaveOccurred())
			Expect(rule.RuleType).To(Equal(models.RuleTypeTemplate))
			Expect(rule.Condition).To(Equal(models.ConditionGreaterThan))
			Expect(*rule.ThresholdValue).To(Equal(70.0))
			Expect(rule.ConsecutiveViolationsRequired).To(Equal(5))
			Expect(rule.CooldownMinutes).To(Equal(30))
			Expect(rule.Enabled).To(BeTrue())

			stored, err := rules.GetByID(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeNil())
		})

		It("should default the rule name to the template name", func() {
			rule, err := ruleService.CreateFromTemplate(ctx, "motion_detected", "hall-1:17", "", "motion")

			Expect(err).NotTo(HaveOccurred())
			Expect(rule.RuleName).To(Equal("motion_detected"))
		})

		It("should reject a sensor type mismatch", func() {
			_, err := ruleService.CreateFromTemplate(ctx, "motion_detected", "greenhouse-1:4", "x", "temperature_humidity")

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Reason).To(ContainSubstring("sensor type"))
		})

		It("should fail for an unknown template", func() {
			_, err := ruleService.CreateFromTemplate(ctx, "no_such_template", "greenhouse-1:4", "x", "")

			var cfgErr *processor.RuleConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Reason).To(ContainSubstring("not found"))
		})

		It("should not change resolved rules when the template later changes", func() {
			rule, err := ruleService.CreateFromTemplate(ctx, "humidity_high", "greenhouse-1:4", "", "temperature_humidity")
			Expect(err).NotTo(HaveOccurred())

			tmpl, err := templates.GetByName(ctx, "humidity_high")
			Expect(err).NotTo(HaveOccurred())
			tmpl.RuleConfig = []byte(`{"condition": "greater_than", "threshold_value": 99, "severity": "low", "notification_channels": ["email"]}`)

			stored, err := rules.GetByID(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.ThresholdValue).To(Equal(70.0))
		})
	})

	Describe("UpdateRule", func() {
		It("should validate before updating", func() {
			rule := validSimpleRule()
			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())

			rule.RuleName = ""
			err := ruleService.UpdateRule(ctx, rule)
			Expect(err).To(HaveOccurred())
		})

		It("should clear evaluation state when the update disables the rule", func() {
			rule := validSimpleRule()
			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())

			rule.Enabled = false
			Expect(ruleService.UpdateRule(ctx, rule)).To(Succeed())

			Expect(cleaner.Cleared()).To(ContainElement(rule.ID))
		})
	})

	Describe("SetEnabled", func() {
		It("should clear evaluation state on disable", func() {
			rule := validSimpleRule()
			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())

			Expect(ruleService.SetEnabled(ctx, rule.ID, false)).To(Succeed())

			stored, err := rules.GetByID(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Enabled).To(BeFalse())
			Expect(cleaner.Cleared()).To(ContainElement(rule.ID))
		})

		It("should not clear state on enable", func() {
			rule := validSimpleRule()
			rule.Enabled = false
			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())

			Expect(ruleService.SetEnabled(ctx, rule.ID, true)).To(Succeed())
			Expect(cleaner.Cleared()).To(BeEmpty())
		})

		It("should fail for an unknown rule", func() {
			err := ruleService.SetEnabled(ctx, uuid.New(), false)
			Expect(err).To(MatchError(ContainSubstring("not found")))
		})
	})

	Describe("DeleteRule", func() {
		It("should cascade state clearing and alert deletion", func() {
			rule := validSimpleRule()
			Expect(ruleService.CreateRule(ctx, rule)).To(Succeed())

			instance := models.NewAlertInstance(rule, rule.DeviceSensorID, time.Now())
			Expect(alerts.Save(ctx, instance)).To(Succeed())

			Expect(ruleService.DeleteRule(ctx, rule.ID)).To(Succeed())

			Expect(cleaner.Cleared()).To(ContainElement(rule.ID))

			stored, err := rules.GetByID(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())

			remaining, err := alerts.ListOpenByRule(ctx, rule.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})
	})

	Describe("EnsureDefaultTemplates", func() {
		It("should seed the built-in templates once", func() {
			Expect(ruleService.EnsureDefaultTemplates(ctx)).To(Succeed())
			Expect(ruleService.EnsureDefaultTemplates(ctx)).To(Succeed())

			listed, err := ruleService.ListTemplates(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(4))
		})
	})
})
