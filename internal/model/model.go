package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&ScenarioResult{},
	&TelemetrySample{},
	&WriterPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// WriterPerformance is a periodic snapshot of the DB writer's backlog
type WriterPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_writerperf_time"`
	RunID               uint              `json:"runId" gorm:"index:idx_writerperf_run_id"`
	Run                 Run               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*WriterPerformance) TableName() string {
	return "writer_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	TelemetrySamples uint32 `json:"telemetrySamples"`
	ScenarioResults  uint32 `json:"scenarioResults"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Run is one harness execution
type Run struct {
	gorm.Model
	RunUUID    string           `json:"runUuid" gorm:"size:36;uniqueIndex"`
	Label      string           `json:"label" gorm:"size:200"`
	StartTime  time.Time        `json:"startTime" gorm:"type:timestamptz;"`
	EndTime    *time.Time       `json:"endTime" gorm:"type:timestamptz;"`
	Tag        string           `json:"tag" gorm:"size:127"`
	Parameters datatypes.JSON   `json:"parameters" gorm:"default:'{}'"`
	Results    []ScenarioResult `json:"results"`
}

func (*Run) TableName() string {
	return "runs"
}

// ScenarioResult is the score of one scenario in a run
type ScenarioResult struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"type:timestamptz;"` // Wall time when the result was recorded
	RunID       uint      `json:"runId" gorm:"index:idx_scenarioresult_run_id"`
	Run         Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Sequence    int       `json:"sequence"`
	Name        string    `json:"name" gorm:"size:127;index:idx_scenarioresult_name"`
	Fingerprint string    `json:"fingerprint" gorm:"size:16;index:idx_scenarioresult_fingerprint"` // hex xxh3 of the initial conditions
	Completed   bool      `json:"completed" gorm:"default:false"`
	FuelUsed    float64   `json:"fuelUsed"`
	TimeTaken   float64   `json:"timeTaken"` // simulated seconds
	Ticks       int       `json:"ticks"`
	MinAltitude float64   `json:"minAltitude"`
	MaxTWR      float64   `json:"maxTwr"`

	Trajectory geom.LineString `json:"trajectory"`
	FinalPoint geom.Point      `json:"finalPoint"`
}

func (*ScenarioResult) TableName() string {
	return "scenario_results"
}

// TelemetrySample is one decimated telemetry frame
type TelemetrySample struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID        uint      `json:"runId" gorm:"index:idx_telemetrysample_run_id"`
	Run          Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick         int64     `json:"tick" gorm:"index:idx_tick"`
	SimTime      float64   `json:"simTime"`
	ScenarioName string    `json:"scenario" gorm:"size:127"`

	Position        geom.Point `json:"position"`
	VelocityX       float64    `json:"velocityX"`
	VelocityY       float64    `json:"velocityY"`
	Angle           float64    `json:"angle"`
	AngularVelocity float64    `json:"angularVelocity"`
	Thrust          float64    `json:"thrust"`
	Gimbal          float64    `json:"gimbal"`
	Ignited         bool       `json:"ignited" gorm:"default:false"`
	Mode            string     `json:"mode" gorm:"size:16"`
	Airbrakes       bool       `json:"airbrakes" gorm:"default:false"`
	FuelUsed        float64    `json:"fuelUsed"`
}

func (*TelemetrySample) TableName() string {
	return "telemetry_samples"
}
