// Package loader provides the feature registry for the status API.
//
// Each feature implements the Feature interface, which names it, reports
// whether it is enabled, and registers its routes.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager loads registered features in order with LoadAll. The start
// command registers the batch and integrity features.
package loader
