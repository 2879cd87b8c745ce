package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
)

// GlobalOverrideKey names the entry that applies to every location permitting the technology.
const GlobalOverrideKey = "default"

// OverrideEntry is one named scenario override: option values for a technology,
// either at one location or, in the "default" entry, at every location permitting it.
type OverrideEntry struct {
	// Location is the location the override applies to (only used in per-location entries)
	Location string `yaml:"location,omitempty" json:"location,omitempty"`

	// Tech is the technology whose options are overridden
	Tech string `yaml:"tech" json:"tech"`

	// Options is the option tree merged over the technology's values
	Options Tree `yaml:"options" json:"options"`
}

// OverrideSet holds parsed override entries, keyed by location ("default" for global entries),
// then technology.
type OverrideSet map[string]map[string]Tree

// Validate checks for invalid override entries.
func (e *OverrideEntry) Validate() error {
	if e.Tech == "" {
		return fmt.Errorf("tech must be set")
	}
	if len(e.Options) == 0 {
		return fmt.Errorf("options must not be empty")
	}
	if _, ok := e.Options[KeyParent]; ok {
		return fmt.Errorf("parent cannot be overridden")
	}
	return nil
}

// ParseOverrideEntries parses scenario overrides given as name -> YAML document.
// The format:
//   - "default": options applied at every location that permits the technology
//   - "<override-name>": options for one technology at the entry's location
//
// Invalid entries are logged and skipped. When two entries target the same
// (location, tech) pair the first key in sorted order wins.
func ParseOverrideEntries(data map[string]string) OverrideSet {
	out := make(OverrideSet)
	if data == nil {
		return out
	}
	log := ctrl.Log

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	winners := make(map[Endpoint]string)
	for _, key := range keys {
		var entry OverrideEntry
		if err := yaml.Unmarshal([]byte(data[key]), &entry); err != nil {
			log.Info("Failed to parse override entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if err := entry.Validate(); err != nil {
			log.Info("Invalid override entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		loc := entry.Location
		if key == GlobalOverrideKey {
			loc = GlobalOverrideKey
		} else if loc == "" {
			log.Info("Skipping override entry without location field",
				"key", key)
			continue
		}

		target := Endpoint{Tech: entry.Tech, Location: loc}
		if winner, exists := winners[target]; exists {
			log.Info("Duplicate override target found - first key wins",
				"tech", entry.Tech,
				"location", loc,
				"winningKey", winner,
				"duplicateKey", key)
			continue
		}
		winners[target] = key

		if out[loc] == nil {
			out[loc] = make(map[string]Tree)
		}
		out[loc][entry.Tech] = entry.Options
	}

	log.V(logging.DEBUG).Info("Parsed override entries",
		"entryCount", len(winners))

	return out
}

// OptionsFor returns the effective override options for tech at loc.
// Location-specific values are merged over the "default" entry.
func (s OverrideSet) OptionsFor(tech, loc string) Tree {
	global := s[GlobalOverrideKey][tech]
	local := s[loc][tech]
	if global == nil && local == nil {
		return nil
	}
	result := global.DeepCopy()
	if result == nil {
		result = Tree{}
	}
	result.Merge(local)
	return result
}

// Apply returns a copy of cfg with the overrides merged into each location's overrides.
// Entries naming unknown locations or technologies are rejected.
func (s OverrideSet) Apply(cfg *Config) (*Config, error) {
	out := cfg.DeepCopy()
	for loc, techs := range s {
		if loc == GlobalOverrideKey {
			continue
		}
		if _, ok := out.Locations[loc]; !ok {
			return nil, &ConfigurationError{Location: loc, Reason: "override targets unknown location"}
		}
		for tech := range techs {
			if _, ok := out.Techs[tech]; !ok {
				return nil, &ConfigurationError{Technology: tech, Location: loc, Reason: "override targets unknown technology"}
			}
		}
	}
	for tech := range s[GlobalOverrideKey] {
		if _, ok := out.Techs[tech]; !ok {
			return nil, &ConfigurationError{Technology: tech, Reason: "override targets unknown technology"}
		}
	}

	for _, loc := range out.LocationNames() {
		l := out.Locations[loc]
		for _, tech := range l.Techs {
			opts := s.OptionsFor(tech, loc)
			if opts == nil {
				continue
			}
			if l.Override == nil {
				l.Override = make(map[string]Tree)
			}
			if l.Override[tech] == nil {
				l.Override[tech] = Tree{}
			}
			l.Override[tech].Merge(opts)
		}
		out.Locations[loc] = l
	}
	return out, nil
}
