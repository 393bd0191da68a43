// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package urproto

import (
	"fmt"
	"math"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
)

// AnomalyType classifies a waypoint validation failure
type AnomalyType int

const (
	AnomalyNotFinite AnomalyType = iota
	AnomalyOutOfRange
	AnomalyBeyondReach
)

// ValidationError describes why a waypoint cannot be sent
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateWaypoint checks that a waypoint can be encoded and, when reach is
// positive, that it lies within reach meters of the base origin.
// Returns an empty slice for a valid waypoint.
func ValidateWaypoint(w motion.Waypoint, reach float64) []ValidationError {
	errors := []ValidationError{}

	axes := []struct {
		name  string
		value float64
	}{
		{"x", w.X},
		{"y", w.Y},
		{"z", w.Z},
	}

	for _, axis := range axes {
		if math.IsNaN(axis.value) || math.IsInf(axis.value, 0) {
			errors = append(errors, ValidationError{
				Type:    AnomalyNotFinite,
				Message: fmt.Sprintf("%s is not a finite number (%v)", axis.name, axis.value),
				Details: map[string]interface{}{"axis": axis.name, "value": axis.value},
			})
			continue
		}
		if _, err := ToFixed(axis.value); err != nil {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Message: fmt.Sprintf("%s=%v m does not fit a 32-bit fixed-point field", axis.name, axis.value),
				Details: map[string]interface{}{"axis": axis.name, "value": axis.value},
			})
		}
	}

	if len(errors) > 0 || reach <= 0 {
		return errors
	}

	dist := math.Sqrt(w.X*w.X + w.Y*w.Y + w.Z*w.Z)
	if dist > reach {
		errors = append(errors, ValidationError{
			Type:    AnomalyBeyondReach,
			Message: fmt.Sprintf("waypoint %v is %.3f m from the base (reach %.3f m)", w, dist, reach),
			Details: map[string]interface{}{"distance": dist, "reach": reach},
		})
	}

	return errors
}
