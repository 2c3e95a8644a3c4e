package sgp4

import "fmt"

// Reason classifies why a propagation could not produce a state vector.
type Reason string

const (
	// ReasonInvalidElements: the element set itself is outside the model's
	// domain (eccentricity, inclination or mean motion out of range).
	ReasonInvalidElements Reason = "invalid-elements"
	// ReasonDecayed: the propagated radius dropped below the Earth's
	// surface; the object has reentered.
	ReasonDecayed Reason = "decayed"
	// ReasonDegenerate: the math broke down (perturbed eccentricity out of
	// bounds, negative semi-latus rectum, or a non-finite intermediate).
	ReasonDegenerate Reason = "numerical-degeneracy"
)

// PropagationError reports a failed propagation for one object.
type PropagationError struct {
	CatalogNumber int
	Reason        Reason
	Detail        string
}

func (e *PropagationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("propagation failed for object %d (%s): %s", e.CatalogNumber, e.Reason, e.Detail)
	}
	return fmt.Sprintf("propagation failed for object %d (%s)", e.CatalogNumber, e.Reason)
}
