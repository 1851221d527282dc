package services

import "fmt"

// PrisonNotSupportedError is returned when auto-allocation is requested for a prison
// that has not enabled it
type PrisonNotSupportedError struct {
	PrisonID string
}

func (e *PrisonNotSupportedError) Error() string {
	return fmt.Sprintf("prison %s does not support auto-allocation", e.PrisonID)
}

// NoAvailableKeyworkersError is returned when a prison has offenders to allocate
// but no keyworkers available to take them
type NoAvailableKeyworkersError struct {
	PrisonID string
}

func (e *NoAvailableKeyworkersError) Error() string {
	return fmt.Sprintf("no keyworkers available for auto-allocation in prison %s", e.PrisonID)
}
