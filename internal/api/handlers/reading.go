package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/observability/metrics"
	"github.com/sensor-platform/alert-engine/internal/processor"
)

// ReadingHandler accepts sensor readings and feeds them to the engine.
type ReadingHandler struct {
	engine *processor.Engine
}

// NewReadingHandler creates a new reading handler
func NewReadingHandler(engine *processor.Engine) *ReadingHandler {
	return &ReadingHandler{
		engine: engine,
	}
}

// IngestReadings handles POST /api/readings: one reading or an array of
// readings in the canonical shape.
func (h *ReadingHandler) IngestReadings(c *gin.Context) {
	var readings []models.Reading

	// Accept a single object or an array.
	var single models.Reading
	if err := c.ShouldBindBodyWithJSON(&readings); err != nil {
		if err := c.ShouldBindBodyWithJSON(&single); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a reading or an array of readings"})
			return
		}
		readings = []models.Reading{single}
	}

	accepted := 0
	for _, reading := range readings {
		if reading.DeviceID == "" {
			continue
		}
		if reading.Timestamp.IsZero() {
			reading.Timestamp = time.Now()
		}
		if err := h.engine.HandleReading(c.Request.Context(), reading); err != nil {
			logger.Error().Err(err).Str("device_id", reading.DeviceID).Msg("Reading rejected")
			continue
		}
		metrics.IncReadingsIngested("http")
		accepted++
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"received": len(readings),
	})
}

// devicePayload is the batch shape the device firmware posts.
type devicePayload struct {
	DeviceID string        `json:"device_id" binding:"required"`
	Data     []deviceEntry `json:"data"`
}

type deviceEntry struct {
	SensorType  string   `json:"sensor_type"`
	SensorName  string   `json:"sensor_name"`
	Pin         int      `json:"pin"`
	Timestamp   int64    `json:"timestamp"`
	Value       *float64 `json:"value"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Unit        string   `json:"unit"`
}

// IngestDeviceData handles POST /api/sensor-data, the firmware's batch upload.
// A combined temperature/humidity entry yields one reading per measured value;
// plain sensors report through the raw value field.
func (h *ReadingHandler) IngestDeviceData(c *gin.Context) {
	var payload devicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if headerID := c.GetHeader("X-Device-ID"); headerID != "" && headerID != payload.DeviceID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Device-ID does not match payload device_id"})
		return
	}

	accepted := 0
	for _, entry := range payload.Data {
		ts := time.Now()
		if entry.Timestamp > 0 {
			ts = time.UnixMilli(entry.Timestamp)
		}

		for _, reading := range entryReadings(payload.DeviceID, entry, ts) {
			if err := h.engine.HandleReading(c.Request.Context(), reading); err != nil {
				logger.Error().Err(err).Str("device_id", payload.DeviceID).Msg("Device reading rejected")
				continue
			}
			metrics.IncReadingsIngested("http")
			accepted++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"received": len(payload.Data),
	})
}

// entryReadings expands one firmware entry into readings. DHT-style sensors
// carry temperature and humidity in the same entry, so each measured value
// becomes its own reading on the entry's pin.
func entryReadings(deviceID string, entry deviceEntry, ts time.Time) []models.Reading {
	var readings []models.Reading

	add := func(value *float64, unit string) {
		readings = append(readings, models.Reading{
			DeviceID:       deviceID,
			SensorPin:      entry.Pin,
			ProcessedValue: value,
			Unit:           unit,
			Timestamp:      ts,
		})
	}

	if entry.Temperature != nil {
		add(entry.Temperature, "celsius")
	}
	if entry.Humidity != nil {
		add(entry.Humidity, "percent")
	}
	if entry.Temperature == nil && entry.Humidity == nil {
		add(entry.Value, entry.Unit)
	}

	return readings
}
