package models

import (
	"fmt"
	"time"
)

// Reading is one processed sensor sample received from a device. Readings are
// transient evaluation input and are not persisted here.
type Reading struct {
	DeviceID       string    `json:"device_id"`
	SensorPin      int       `json:"sensor_pin"`
	ProcessedValue *float64  `json:"processed_value"`
	Unit           string    `json:"unit,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeviceSensorID returns the key used to bind rules to a device sensor.
func (r Reading) DeviceSensorID() string {
	return fmt.Sprintf("%s:%d", r.DeviceID, r.SensorPin)
}
