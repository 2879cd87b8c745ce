// Package config provides the model definition and option resolution for the planner.
//
// This package handles loading, validation, and access to a model definition: the
// technologies and their inheritance tree, locations and their overrides, links between
// locations, the time axis and the time-indexed data tables.
//
// Option Resolution:
//
// Every option is addressed by a dotted key rooted at a technology, e.g.
// "ccgt.constraints.e_cap_max" or "ccgt.costs.monetary.e_cap". A Resolver answers
// "what is key at location x" by checking, in order:
//
//  1. The location's override for the technology
//  2. The options of the link that generated a transmission technology
//  3. The technology itself, then its parent chain, ending in the "defaults" technology
//  4. The built-in defaults
//  5. An explicit default key supplied by the caller, resolved the same way
//
// If nothing resolves, a ConfigurationError naming the technology, location and key
// is returned. Results are memoized per (key, location).
//
// Example usage:
//
//	cfg, err := config.LoadFile("model.yaml")
//	if err != nil {
//	    return err
//	}
//	r, err := config.NewResolver(cfg)
//	if err != nil {
//	    return err
//	}
//	capMax, err := r.Float("ccgt.constraints.e_cap_max", "region1")
//
//	// per-class cost with a class-independent fallback
//	unit, err := r.FloatDefault("ccgt.costs.monetary.e_cap", "region1", "ccgt.costs.default.e_cap")
//
// Scenario Overrides:
//
// ParseOverrideEntries accepts name -> YAML documents (as passed with --override on the
// command line). A "default" entry applies everywhere the technology is permitted; other
// entries name a location. OverrideSet.Apply returns a revised Config and never mutates
// its input.
package config
