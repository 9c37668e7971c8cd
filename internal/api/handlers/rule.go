package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/service"
)

// RuleHandler handles rule management HTTP requests
type RuleHandler struct {
	service service.RuleService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(service service.RuleService) *RuleHandler {
	return &RuleHandler{
		service: service,
	}
}

// CreateRule handles POST /api/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var rule models.SensorRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.CreateRule(c.Request.Context(), &rule); err != nil {
		respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &rule)
}

// CreateFromTemplate handles POST /api/rules/from-template
func (h *RuleHandler) CreateFromTemplate(c *gin.Context) {
	var req struct {
		TemplateName   string `json:"template_name" binding:"required"`
		DeviceSensorID string `json:"device_sensor_id" binding:"required"`
		RuleName       string `json:"rule_name"`
		SensorType     string `json:"sensor_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.service.CreateFromTemplate(c.Request.Context(), req.TemplateName, req.DeviceSensorID, req.RuleName, req.SensorType)
	if err != nil {
		respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules handles GET /api/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule handles GET /api/rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule handles PUT /api/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var rule models.SensorRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID = id

	if err := h.service.UpdateRule(c.Request.Context(), &rule); err != nil {
		respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, &rule)
}

// DeleteRule handles DELETE /api/rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetEnabled handles POST /api/rules/:id/enable and /api/rules/:id/disable
func (h *RuleHandler) SetEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
			return
		}

		if err := h.service.SetEnabled(c.Request.Context(), id, enabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
	}
}

// ListTemplates handles GET /api/rules/templates
func (h *RuleHandler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"templates": templates,
		"count":     len(templates),
	})
}

func respondRuleError(c *gin.Context, err error) {
	var cfgErr *processor.RuleConfigError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
