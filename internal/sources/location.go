package sources

import (
	"regexp"
	"strings"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

type knownCity struct {
	pattern *regexp.Regexp
	key     string
	city    string
	state   string
	lat     float64
	lng     float64
}

// knownCities is matched in order; the first hit wins
var knownCities = []knownCity{
	newCity("dallas", "Dallas", "TX", 32.7767, -96.7970),
	newCity("new york", "New York", "NY", 40.7128, -74.0060),
	newCity("nyc", "New York", "NY", 40.7128, -74.0060),
	newCity("seattle", "Seattle", "WA", 47.6062, -122.3321),
	newCity("houston", "Houston", "TX", 29.7604, -95.3698),
	newCity("los angeles", "Los Angeles", "CA", 34.0522, -118.2437),
	newCity("chicago", "Chicago", "IL", 41.8781, -87.6298),
	newCity("miami", "Miami", "FL", 25.7617, -80.1918),
}

func newCity(key, city, state string, lat, lng float64) knownCity {
	return knownCity{
		pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`),
		key:     key,
		city:    city,
		state:   state,
		lat:     lat,
		lng:     lng,
	}
}

// InferLocation looks for a known city in the text, any flair strings and the
// caller's hint. Without a match the hint alone is kept as a raw location.
func InferLocation(text, hint string, flair ...string) *models.Location {
	parts := append([]string{text}, flair...)
	parts = append(parts, hint)
	haystack := strings.ToLower(strings.Join(parts, " "))

	for _, c := range knownCities {
		if c.pattern.MatchString(haystack) {
			lat, lng := c.lat, c.lng
			return &models.Location{
				City:      c.city,
				State:     c.state,
				Country:   "US",
				Latitude:  &lat,
				Longitude: &lng,
				Raw:       c.key,
			}
		}
	}

	if hint = strings.TrimSpace(hint); hint != "" {
		return &models.Location{Raw: hint}
	}
	return nil
}
