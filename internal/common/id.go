package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewMetricID generates a unique metric ID with the "met_" prefix
func NewMetricID() string {
	return "met_" + uuid.New().String()
}
