// Package v1 implements the v1 HTTP API.
package v1

import (
	"reflect"
	"time"

	"github.com/immoledger/backend/internal/generator"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/suggest"
	"golang.org/x/time/rate"
)

// DefaultWriteInterval is the time between throttled writes to the store.
const DefaultWriteInterval = 100 * time.Millisecond

// Controller holds the collaborators of the API handlers.
type Controller struct {
	// Throttle is waited for between batches of writes. Defaults to
	// one batch every DefaultWriteInterval.
	Throttle generator.Throttle

	// Suggester proposes categories for bank transactions. Defaults to the
	// categorization rules in the database.
	Suggester suggest.Suggester

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (co Controller) throttle() generator.Throttle {
	if co.Throttle == nil {
		return rate.NewLimiter(rate.Every(DefaultWriteInterval), 1)
	}

	return co.Throttle
}

func (co Controller) suggester() suggest.Suggester {
	if co.Suggester == nil {
		return suggest.Rules{DB: models.DB}
	}

	return co.Suggester
}

func (co Controller) now() time.Time {
	if co.Now == nil {
		return time.Now()
	}

	return co.Now()
}

// applyFields copies the fields named in fields from source to the struct
// that target points to. Field names are the same in the editable and the
// model structs.
func applyFields(target any, source any, fields []any) {
	t := reflect.ValueOf(target).Elem()
	s := reflect.ValueOf(source)

	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			continue
		}

		to := t.FieldByName(name)
		from := s.FieldByName(name)
		if !to.IsValid() || !from.IsValid() || !to.CanSet() {
			continue
		}
		to.Set(from)
	}
}
