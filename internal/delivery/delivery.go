// Package delivery hands finished evaluation reports to the downstream system.
package delivery

import (
	"context"
	"errors"

	"github.com/spigell/rubric-evaluator/internal/applicant"
)

// Deliverer sends one report somewhere outside the process.
type Deliverer interface {
	Deliver(ctx context.Context, report *applicant.Report) error
}

// Multi delivers to every target and joins their errors.
type Multi []Deliverer

func (m Multi) Deliver(ctx context.Context, report *applicant.Report) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Deliver(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
