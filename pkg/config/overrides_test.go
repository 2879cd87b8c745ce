package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverrideEntries(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]string
		wantLocs  []string
		wantCheck func(t *testing.T, s OverrideSet)
	}{
		{
			name:     "nil data",
			data:     nil,
			wantLocs: []string{},
		},
		{
			name: "default and per-location entries",
			data: map[string]string{
				"default": "tech: ccgt\noptions:\n  constraints:\n    e_cap_max: 10\n",
				"north-cap": "location: north\ntech: ccgt\noptions:\n  constraints:\n    e_cap_min: 5\n",
			},
			wantLocs: []string{"default", "north"},
			wantCheck: func(t *testing.T, s OverrideSet) {
				opts := s.OptionsFor("ccgt", "north")
				v, ok := opts.Lookup("constraints.e_cap_max")
				require.True(t, ok)
				assert.Equal(t, 10, v)
				v, ok = opts.Lookup("constraints.e_cap_min")
				require.True(t, ok)
				assert.Equal(t, 5, v)
				assert.Nil(t, s.OptionsFor("pv", "north"))
			},
		},
		{
			name: "invalid entries are skipped",
			data: map[string]string{
				"broken":      "tech: [",
				"no-options":  "location: north\ntech: ccgt\n",
				"no-location": "tech: ccgt\noptions: {weight: 2}\n",
				"parent":      "location: north\ntech: ccgt\noptions: {parent: thermal}\n",
			},
			wantLocs: []string{},
		},
		{
			name: "duplicate target first key wins",
			data: map[string]string{
				"a": "location: north\ntech: ccgt\noptions: {weight: 1}\n",
				"b": "location: north\ntech: ccgt\noptions: {weight: 2}\n",
			},
			wantLocs: []string{"north"},
			wantCheck: func(t *testing.T, s OverrideSet) {
				v, _ := s["north"]["ccgt"].Lookup("weight")
				assert.Equal(t, 1, v)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOverrideEntries(tt.data)
			locs := make([]string, 0, len(got))
			for loc := range got {
				locs = append(locs, loc)
			}
			assert.ElementsMatch(t, tt.wantLocs, locs)
			if tt.wantCheck != nil {
				tt.wantCheck(t, got)
			}
		})
	}
}

func TestOverrideSetApply(t *testing.T) {
	cfg := testConfig()
	set := ParseOverrideEntries(map[string]string{
		"default": "tech: ccgt\noptions:\n  constraints:\n    e_cap_min: 2\n",
		"south":   "location: south\ntech: ccgt\noptions:\n  constraints:\n    e_cap_max: 12\n",
	})

	revised, err := set.Apply(cfg)
	require.NoError(t, err)

	r, err := NewResolver(revised)
	require.NoError(t, err)
	capMax, err := r.Float("ccgt.constraints.e_cap_max", "south")
	require.NoError(t, err)
	assert.Equal(t, 12.0, capMax)
	capMin, err := r.Float("ccgt.constraints.e_cap_min", "north")
	require.NoError(t, err)
	assert.Equal(t, 2.0, capMin)

	// existing location override survives the merge
	northMax, err := r.Float("ccgt.constraints.e_cap_max", "north")
	require.NoError(t, err)
	assert.True(t, northMax > 1e300)

	// input is untouched
	_, touched := cfg.Locations["south"].Override["ccgt"]
	assert.False(t, touched)

	bad := ParseOverrideEntries(map[string]string{
		"x": "location: west\ntech: ccgt\noptions: {weight: 2}\n",
	})
	_, err = bad.Apply(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWithOverride(t *testing.T) {
	cfg := testConfig()
	revised := cfg.WithOverride("south", "ccgt", "costs.spores_score.e_cap", 3.5)

	r, err := NewResolver(revised)
	require.NoError(t, err)
	v, err := r.Float("ccgt.costs.spores_score.e_cap", "south")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	assert.Nil(t, cfg.Locations["south"].Override)
}
