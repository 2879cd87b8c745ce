package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Endpoint is a (technology, location) pair.
type Endpoint struct {
	Tech     string
	Location string
}

// Resolver answers "what is option key at location x": location override first, then
// the technology's inheritance chain down to the defaults, then an explicit default key.
// Results are memoized; a Resolver is safe for concurrent use.
type Resolver struct {
	cfg       *Config
	techs     map[string]Tree
	links     map[string]map[string]Tree
	permitted map[string][]string
	remotes   map[Endpoint]Endpoint
	builtin   Tree

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

type cacheKey struct {
	key, loc, def string
}

type cacheEntry struct {
	value any
	err   error
}

// NewResolver indexes cfg. Links are expanded into one derived transmission technology
// per direction, named "<tech>:<remote>", whose parent is the link's base technology.
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	r := &Resolver{
		cfg:       cfg,
		techs:     make(map[string]Tree, len(cfg.Techs)),
		links:     make(map[string]map[string]Tree),
		permitted: make(map[string][]string, len(cfg.Locations)),
		remotes:   make(map[Endpoint]Endpoint),
		builtin:   builtinDefaults(),
		cache:     make(map[cacheKey]cacheEntry),
	}
	for name, tree := range cfg.Techs {
		if strings.Contains(name, LinkSeparator) {
			return nil, &ConfigurationError{Technology: name, Reason: "technology names must not contain " + LinkSeparator}
		}
		r.techs[name] = tree
	}
	for loc, l := range cfg.Locations {
		for _, y := range l.Techs {
			if _, ok := r.techs[y]; !ok {
				return nil, &ConfigurationError{Technology: y, Location: loc, Reason: "unknown technology"}
			}
		}
		r.permitted[loc] = append(r.permitted[loc], l.Techs...)
	}

	linkKeys := make([]string, 0, len(cfg.Links))
	for k := range cfg.Links {
		linkKeys = append(linkKeys, k)
	}
	sort.Strings(linkKeys)
	for _, key := range linkKeys {
		a, b, ok := ParseLink(key)
		if !ok {
			return nil, &ConfigurationError{Key: "links." + key, Reason: "link keys must be \"a,b\" with two distinct locations"}
		}
		for _, end := range []string{a, b} {
			if _, ok := cfg.Locations[end]; !ok {
				return nil, &ConfigurationError{Key: "links." + key, Location: end, Reason: "unknown location"}
			}
		}
		for base, opts := range cfg.Links[key] {
			if _, ok := r.techs[base]; !ok {
				return nil, &ConfigurationError{Key: "links." + key, Technology: base, Reason: "unknown technology"}
			}
			atA, atB := TransmissionTech(base, b), TransmissionTech(base, a)
			r.addDerived(atA, base)
			r.addDerived(atB, base)
			r.setLinkOptions(a, atA, opts)
			r.setLinkOptions(b, atB, opts)
			r.permitted[a] = append(r.permitted[a], atA)
			r.permitted[b] = append(r.permitted[b], atB)
			r.remotes[Endpoint{Tech: atA, Location: a}] = Endpoint{Tech: atB, Location: b}
			r.remotes[Endpoint{Tech: atB, Location: b}] = Endpoint{Tech: atA, Location: a}
		}
	}
	for loc := range r.permitted {
		r.permitted[loc] = dedupSorted(r.permitted[loc])
	}
	return r, nil
}

func (r *Resolver) addDerived(name, base string) {
	if _, ok := r.techs[name]; ok {
		return
	}
	r.techs[name] = Tree{KeyParent: base}
}

func (r *Resolver) setLinkOptions(loc, tech string, opts Tree) {
	if r.links[loc] == nil {
		r.links[loc] = make(map[string]Tree)
	}
	r.links[loc][tech] = opts
}

// Config returns the configuration the resolver was built from.
func (r *Resolver) Config() *Config {
	return r.cfg
}

// Techs returns all technologies, derived transmission technologies included, sorted.
func (r *Resolver) Techs() []string {
	out := make([]string, 0, len(r.techs))
	for name := range r.techs {
		if name == DefaultsTech {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Permitted returns the technologies permitted at loc, sorted.
func (r *Resolver) Permitted(loc string) []string {
	return r.permitted[loc]
}

// Remote returns the other end of a transmission technology at loc.
func (r *Resolver) Remote(tech, loc string) (Endpoint, bool) {
	e, ok := r.remotes[Endpoint{Tech: tech, Location: loc}]
	return e, ok
}

// IsDerived reports whether tech was generated from a link.
func (r *Resolver) IsDerived(tech string) bool {
	return strings.Contains(tech, LinkSeparator)
}

// Get resolves key ("<tech>.<path>") at loc. loc may be empty for technology-wide values.
func (r *Resolver) Get(key, loc string) (any, error) {
	return r.resolve(key, loc, "")
}

// GetDefault resolves key at loc, falling back to defaultKey resolved the same way.
func (r *Resolver) GetDefault(key, loc, defaultKey string) (any, error) {
	return r.resolve(key, loc, defaultKey)
}

// Has reports whether key resolves at loc.
func (r *Resolver) Has(key, loc string) bool {
	_, err := r.Get(key, loc)
	return err == nil
}

// Float resolves key at loc as a number.
func (r *Resolver) Float(key, loc string) (float64, error) {
	return r.FloatDefault(key, loc, "")
}

// FloatDefault resolves key at loc as a number with an explicit default key.
func (r *Resolver) FloatDefault(key, loc, defaultKey string) (float64, error) {
	v, err := r.resolve(key, loc, defaultKey)
	if err != nil {
		return 0, err
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, newConfigError(key, loc, err.Error())
	}
	if math.IsNaN(f) {
		return 0, newConfigError(key, loc, "value is NaN")
	}
	return f, nil
}

// Bool resolves key at loc as a boolean.
func (r *Resolver) Bool(key, loc string) (bool, error) {
	v, err := r.Get(key, loc)
	if err != nil {
		return false, err
	}
	b, err := toBool(v)
	if err != nil {
		return false, newConfigError(key, loc, err.Error())
	}
	return b, nil
}

// String resolves key at loc as a string.
func (r *Resolver) String(key, loc string) (string, error) {
	v, err := r.Get(key, loc)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", newConfigError(key, loc, fmt.Sprintf("expected a string, got %T", v))
	}
	return s, nil
}

// IsDisabled reports whether key resolves to literal false at loc, which switches the
// option off rather than meaning zero.
func (r *Resolver) IsDisabled(key, loc string) (bool, error) {
	v, err := r.Get(key, loc)
	if err != nil {
		return false, err
	}
	b, isBool := v.(bool)
	return isBool && !b, nil
}

func (r *Resolver) resolve(key, loc, defaultKey string) (any, error) {
	ck := cacheKey{key: key, loc: loc, def: defaultKey}
	r.mu.Lock()
	if e, ok := r.cache[ck]; ok {
		r.mu.Unlock()
		return e.value, e.err
	}
	r.mu.Unlock()

	v, err := r.lookup(key, loc)
	if err != nil && defaultKey != "" {
		if dv, derr := r.lookup(defaultKey, loc); derr == nil {
			v, err = dv, nil
		}
	}

	r.mu.Lock()
	r.cache[ck] = cacheEntry{value: v, err: err}
	r.mu.Unlock()
	return v, err
}

func (r *Resolver) lookup(key, loc string) (any, error) {
	tech, path, ok := strings.Cut(key, ".")
	if !ok || tech == "" || path == "" {
		return nil, newConfigError(key, loc, "keys must have the form <tech>.<option>")
	}
	if _, known := r.techs[tech]; !known && tech != DefaultsTech {
		return nil, newConfigError(key, loc, "unknown technology")
	}

	if loc != "" {
		if l, ok := r.cfg.Locations[loc]; ok {
			if v, ok := l.Override[tech].Lookup(path); ok {
				return v, nil
			}
		} else {
			return nil, newConfigError(key, loc, "unknown location")
		}
		if v, ok := r.links[loc][tech].Lookup(path); ok {
			return v, nil
		}
	}

	visited := make(map[string]bool)
	for cur := tech; ; {
		if visited[cur] {
			return nil, newConfigError(key, loc, "inheritance cycle through "+cur)
		}
		visited[cur] = true
		tree := r.techs[cur]
		if v, ok := tree.Lookup(path); ok {
			return v, nil
		}
		if cur == DefaultsTech {
			break
		}
		parent, _ := tree[KeyParent].(string)
		if parent == "" {
			parent = DefaultsTech
		} else if _, ok := r.techs[parent]; !ok && parent != DefaultsTech {
			return nil, newConfigError(key, loc, "unknown parent technology "+parent)
		}
		cur = parent
	}
	if v, ok := r.builtin.Lookup(path); ok {
		return v, nil
	}
	return nil, newConfigError(key, loc, "no value at location, in the inheritance chain or in the defaults")
}

func dedupSorted(in []string) []string {
	sort.Strings(in)
	out := make([]string, 0, len(in))
	for _, s := range in {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}
