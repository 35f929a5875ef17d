package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"immograph/models"
)

// Rules validation errors.
var (
	ErrUnknownSource    = errors.New("rules: unknown source key")
	ErrInvalidBounds    = errors.New("rules: min must be below max")
	ErrInvalidTolerance = errors.New("rules: tolerance_pct must be positive")
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies inside the range, boundaries included.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Substitution is one ordered regex replacement applied to a location
// string during cleanup.
type Substitution struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`

	re *regexp.Regexp
}

// Apply runs the compiled substitution over s.
func (s *Substitution) Apply(in string) string {
	return s.re.ReplaceAllString(in, s.Replace)
}

// SourceRules holds the site-specific normalization configuration:
// which unit tokens to strip and which location substitutions to apply,
// in order.
type SourceRules struct {
	SizeTokens    []string       `yaml:"size_tokens"`
	RoomTokens    []string       `yaml:"room_tokens"`
	LocationSubs  []Substitution `yaml:"location_subs"`
	CleanupTitles bool           `yaml:"cleanup_titles"`
}

// Tolerance configures one quantized fingerprint dimension.
type Tolerance struct {
	Bounds  Bounds  `yaml:"bounds"`
	Percent float64 `yaml:"tolerance_pct"`
}

// Rules bundles everything the pipeline stages read at run start:
// per-source normalization, validation bounds, dedup tolerances.
type Rules struct {
	Sources map[models.Source]SourceRules `yaml:"sources"`

	PriceBounds Bounds `yaml:"price_bounds"`
	SizeBounds  Bounds `yaml:"size_bounds"`
	RoomBounds  Bounds `yaml:"room_bounds"`

	PriceTolerance Tolerance `yaml:"price_tolerance"`
	SizeTolerance  Tolerance `yaml:"size_tolerance"`
}

func mustSub(pattern, replace string) Substitution {
	return Substitution{Pattern: pattern, Replace: replace, re: regexp.MustCompile(pattern)}
}

// DefaultRules returns the compiled-in configuration matching the two
// supported sources. Willhaben prefixes locations with the district
// ("7. Bezirk, Neubaugasse 10"); Immoscout appends street-level noise
// after the city name.
func DefaultRules() *Rules {
	return &Rules{
		Sources: map[models.Source]SourceRules{
			models.SourceWillhaben: {
				SizeTokens:    []string{" m²", "m²"},
				RoomTokens:    []string{},
				LocationSubs:  []Substitution{mustSub(`\d+\. Bezirk,\s*`, "")},
				CleanupTitles: true,
			},
			models.SourceImmoscout: {
				SizeTokens:   []string{" m²", "m²"},
				RoomTokens:   []string{" Zimmer", "Zimmer"},
				LocationSubs: []Substitution{mustSub(`Wien.*`, "Wien")},
			},
		},
		PriceBounds: Bounds{Min: 100, Max: 100000},
		SizeBounds:  Bounds{Min: 5, Max: 1000},
		RoomBounds:  Bounds{Min: 0.5, Max: 20},

		PriceTolerance: Tolerance{Bounds: Bounds{Min: 100, Max: 100000}, Percent: 1.0},
		SizeTolerance:  Tolerance{Bounds: Bounds{Min: 5, Max: 1000}, Percent: 0.5},
	}
}

// LoadRules reads rules from a YAML file, or returns the defaults when
// path is empty. The returned rules are compiled and validated.
func LoadRules(path string) (*Rules, error) {
	r := DefaultRules()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rules: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, r); err != nil {
			return nil, fmt.Errorf("rules: parse %q: %w", path, err)
		}
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rules) compile() error {
	for src, sr := range r.Sources {
		for i := range sr.LocationSubs {
			re, err := regexp.Compile(sr.LocationSubs[i].Pattern)
			if err != nil {
				return fmt.Errorf("rules: source %s substitution %d: %w", src, i, err)
			}
			sr.LocationSubs[i].re = re
		}
		r.Sources[src] = sr
	}
	return nil
}

// Validate checks bounds ordering and tolerance sanity.
func (r *Rules) Validate() error {
	for src := range r.Sources {
		if src != models.SourceWillhaben && src != models.SourceImmoscout {
			return fmt.Errorf("%w: %s", ErrUnknownSource, src)
		}
	}
	for _, b := range []Bounds{r.PriceBounds, r.SizeBounds, r.RoomBounds,
		r.PriceTolerance.Bounds, r.SizeTolerance.Bounds} {
		if b.Min >= b.Max {
			return fmt.Errorf("%w: [%g, %g]", ErrInvalidBounds, b.Min, b.Max)
		}
	}
	if r.PriceTolerance.Percent <= 0 || r.SizeTolerance.Percent <= 0 {
		return ErrInvalidTolerance
	}
	return nil
}

// ForSource returns the normalization rules for a source, falling back
// to an empty rule set for sources without specific configuration.
func (r *Rules) ForSource(src models.Source) SourceRules {
	return r.Sources[src]
}
