// Package catalog turns raw element sets into the tracked-object set the
// engine propagates each tick. Building a catalog filters out objects
// whose elements are structurally broken, stale, or fail a trial
// propagation, and records why each rejection happened.
package catalog

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sky/skytrack/internal/sgp4"
	"github.com/sky/skytrack/internal/tle"
)

// DefaultMaxElementAge is the freshness horizon: element sets older than
// this at build time are excluded from tracking.
const DefaultMaxElementAge = 60 * 24 * time.Hour

// TrackedObject is one usable catalog entry: its elements plus the
// prepared propagation model.
type TrackedObject struct {
	CatalogNumber int
	Name          string
	Category      Category
	Elements      tle.ElementSet
	Model         *sgp4.Model
}

// BuildStats counts what happened to the source records during a build.
type BuildStats struct {
	Source           int
	Usable           int
	RejectedStale    int
	RejectedInvalid  int
	RejectedModelErr int
}

// Catalog is an immutable set of tracked objects. Replace the whole
// catalog via Store.Set; never mutate one in place.
type Catalog struct {
	Objects []TrackedObject
	BuiltAt time.Time
	Stats   BuildStats

	byNumber map[int]*TrackedObject
}

// Build filters els down to the usable tracked set. now anchors the
// freshness test; maxAge <= 0 selects DefaultMaxElementAge. Every
// rejection is logged with the object identity and counted in Stats.
func Build(els []tle.ElementSet, now time.Time, maxAge time.Duration, logger *slog.Logger) *Catalog {
	if maxAge <= 0 {
		maxAge = DefaultMaxElementAge
	}

	c := &Catalog{
		BuiltAt:  now,
		byNumber: make(map[int]*TrackedObject, len(els)),
	}
	c.Stats.Source = len(els)

	for i := range els {
		e := &els[i]

		if len(e.Line1) != 69 || len(e.Line2) != 69 {
			c.Stats.RejectedInvalid++
			logger.Warn("rejecting object with malformed lines", "catalog_number", e.CatalogNumber, "name", e.Name)
			continue
		}
		if age := now.Sub(e.Epoch); age > maxAge {
			c.Stats.RejectedStale++
			logger.Warn("rejecting stale element set",
				"catalog_number", e.CatalogNumber, "name", e.Name,
				"age_days", age.Hours()/24)
			continue
		}

		model, err := sgp4.NewModel(e)
		if err != nil {
			c.Stats.RejectedModelErr++
			logger.Warn("rejecting object with unusable elements",
				"catalog_number", e.CatalogNumber, "name", e.Name, "error", err)
			continue
		}
		// Trial propagation at build time; objects that cannot produce a
		// state now will not start producing one mid-tick.
		if _, err := model.PropagateTime(now); err != nil {
			c.Stats.RejectedModelErr++
			var perr *sgp4.PropagationError
			if errors.As(err, &perr) && perr.Reason == sgp4.ReasonDecayed {
				logger.Warn("rejecting decayed object", "catalog_number", e.CatalogNumber, "name", e.Name)
			} else {
				logger.Warn("rejecting object failing trial propagation",
					"catalog_number", e.CatalogNumber, "name", e.Name, "error", err)
			}
			continue
		}

		c.Objects = append(c.Objects, TrackedObject{
			CatalogNumber: e.CatalogNumber,
			Name:          e.Name,
			Category:      CategoryFor(e.Name),
			Elements:      *e,
			Model:         model,
		})
	}

	for i := range c.Objects {
		c.byNumber[c.Objects[i].CatalogNumber] = &c.Objects[i]
	}
	c.Stats.Usable = len(c.Objects)

	logger.Info("catalog built",
		"source", c.Stats.Source,
		"usable", c.Stats.Usable,
		"rejected_stale", c.Stats.RejectedStale,
		"rejected_invalid", c.Stats.RejectedInvalid,
		"rejected_model", c.Stats.RejectedModelErr)

	return c
}

// Lookup returns the tracked object with the given catalog number, or nil.
func (c *Catalog) Lookup(catalogNumber int) *TrackedObject {
	if c == nil {
		return nil
	}
	return c.byNumber[catalogNumber]
}

// Len returns the number of usable objects.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Objects)
}
