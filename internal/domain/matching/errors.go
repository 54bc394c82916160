package matching

import (
	"errors"
	"fmt"
)

// ErrInfeasible is the kind of every infeasibility failure.
var ErrInfeasible = errors.New("infeasible assignment")

// InfeasibleError reports the papers that could not reach their review count.
type InfeasibleError struct {
	Underserved int
	Papers      []string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: %d paper(s) under-served; raise reviewer capacities or loosen conflict rules",
		ErrInfeasible, e.Underserved)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }
