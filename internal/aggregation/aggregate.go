// Package aggregation folds classified posts into the CSI score, category
// counts and map markers. Everything here is a pure function of its input.
package aggregation

import (
	"fmt"
	"math"
	"strings"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// NeutralCSI is the score of an empty result set
const NeutralCSI = 50.0

// Aggregate deduplicates results and computes everything except timings
func Aggregate(results []models.SentimentResult) *models.AnalyzeResponse {
	unique := Dedupe(results)
	score := CSIScore(unique)

	return &models.AnalyzeResponse{
		Sentiments:  unique,
		CSIScore:    score,
		Summary:     FallbackSummary(unique, score),
		IssueCounts: IssueCounts(unique),
		Markers:     Markers(unique),
	}
}

// Dedupe keeps one result per post id. The last occurrence wins but keeps
// the position of the first, so ordering stays stable.
func Dedupe(results []models.SentimentResult) []models.SentimentResult {
	index := make(map[string]int, len(results))
	unique := make([]models.SentimentResult, 0, len(results))

	for _, result := range results {
		if i, ok := index[result.Post.ID]; ok {
			unique[i] = result
			continue
		}
		index[result.Post.ID] = len(unique)
		unique = append(unique, result)
	}

	return unique
}

// DedupePosts applies the same rule to posts before they are classified
func DedupePosts(posts []models.Post) []models.Post {
	index := make(map[string]int, len(posts))
	unique := make([]models.Post, 0, len(posts))

	for _, post := range posts {
		if i, ok := index[post.ID]; ok {
			unique[i] = post
			continue
		}
		index[post.ID] = len(unique)
		unique = append(unique, post)
	}

	return unique
}

// IssueCounts counts results per category. Absent categories have no key.
func IssueCounts(results []models.SentimentResult) map[models.Category]int {
	counts := make(map[models.Category]int)
	for _, result := range results {
		counts[result.Category]++
	}
	return counts
}

// CSIScore is the confidence-weighted mean of sentiment values, rounded and
// clamped to [0,100]. A zero confidence weighs 1.0.
func CSIScore(results []models.SentimentResult) float64 {
	if len(results) == 0 {
		return NeutralCSI
	}

	var weighted, totalWeight float64
	for _, result := range results {
		weight := result.Confidence
		if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 1.0
		}
		weighted += result.Sentiment.Value() * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return NeutralCSI
	}

	return math.Max(0, math.Min(100, math.Round(weighted/totalWeight)))
}

// Markers returns one map marker per result with coordinates
func Markers(results []models.SentimentResult) []models.Marker {
	markers := make([]models.Marker, 0)
	for _, result := range results {
		loc := result.Post.Location
		if !loc.HasCoordinates() {
			continue
		}
		markers = append(markers, models.Marker{
			Lat: *loc.Latitude,
			Lng: *loc.Longitude,
			Key: result.Post.ID,
		})
	}
	return markers
}

// Band maps a score onto Poor, Fair, Good or Excellent
func Band(score float64) string {
	switch {
	case score <= 40:
		return "Poor"
	case score <= 70:
		return "Fair"
	case score <= 85:
		return "Good"
	default:
		return "Excellent"
	}
}

// Mood is the coarse three-way view of a score
func Mood(score float64) string {
	switch {
	case score < 40:
		return "unhappy"
	case score < 70:
		return "neutral"
	default:
		return "happy"
	}
}

// DominantCategory returns the most frequent category, ties going to display order
func DominantCategory(counts map[models.Category]int) (models.Category, bool) {
	var best models.Category
	bestCount := 0
	for _, category := range models.Categories {
		if counts[category] > bestCount {
			best, bestCount = category, counts[category]
		}
	}
	return best, bestCount > 0
}

// FallbackSummary is used whenever the language model summary is unavailable
func FallbackSummary(results []models.SentimentResult, score float64) string {
	if len(results) == 0 {
		return "No feedback signals matched the current filter."
	}

	category, _ := DominantCategory(IssueCounts(results))
	return fmt.Sprintf("CSI %.0f (%s): dominant signal around %s across %d posts.",
		score, Band(score), strings.ToLower(string(category)), len(results))
}
