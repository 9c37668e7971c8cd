package app

import (
	"fmt"

	"github.com/sensor-platform/alert-engine/internal/notifier"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/service"
	"github.com/sensor-platform/alert-engine/internal/websocket"
	"gorm.io/gorm"
)

// Dependencies holds all application-wide dependencies
type Dependencies struct {
	DB           *gorm.DB
	Engine       *processor.Engine
	RuleService  service.RuleService
	AlertService service.AlertService
	Dispatcher   *notifier.Dispatcher
	EventBus     *processor.EventBus
	WSHub        *websocket.Hub
}

// NewDependencies creates a new dependencies container with validation
func NewDependencies(
	db *gorm.DB,
	engine *processor.Engine,
	ruleService service.RuleService,
	alertService service.AlertService,
	dispatcher *notifier.Dispatcher,
	eventBus *processor.EventBus,
	wsHub *websocket.Hub,
) (*Dependencies, error) {
	// Validate required dependencies
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("rule engine is required")
	}
	if ruleService == nil {
		return nil, fmt.Errorf("rule service is required")
	}
	if alertService == nil {
		return nil, fmt.Errorf("alert service is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if eventBus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if wsHub == nil {
		return nil, fmt.Errorf("websocket hub is required")
	}

	return &Dependencies{
		DB:           db,
		Engine:       engine,
		RuleService:  ruleService,
		AlertService: alertService,
		Dispatcher:   dispatcher,
		EventBus:     eventBus,
		WSHub:        wsHub,
	}, nil
}
