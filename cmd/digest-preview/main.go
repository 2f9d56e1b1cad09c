package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/analysis"
	"github.com/mhosigiri/FeedbackAI/internal/classifier"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/storage"
)

func main() {
	fmt.Println("📊 FeedbackAI - Digest Preview")
	fmt.Println("==============================")

	ctx := context.Background()
	heuristic := classifier.NewHeuristicClassifier()

	var results []models.SentimentResult
	for _, post := range samplePosts() {
		result, err := heuristic.Classify(ctx, post)
		if err != nil {
			fmt.Printf("⚠️  Could not classify %s: %v\n", post.ID, err)
			continue
		}
		results = append(results, *result)
	}

	var unresolved []models.FeedbackAnalysis
	for i, sub := range sampleSubmissions() {
		classified, err := heuristic.ClassifyCase(ctx, sub)
		if err != nil {
			continue
		}
		classified.AnalyzedAt = time.Now().Add(-time.Duration(i) * time.Hour).Unix()
		unresolved = append(unresolved, *classified)
	}

	fmt.Printf("\n📊 Generating digest from %d sample posts and %d open cases...\n", len(results), len(unresolved))
	report := analysis.GenerateReport("manual", "T-Mobile", results, unresolved, time.Now())

	printReport(report)

	if err := saveReport(ctx, report); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Digest preview completed!")
}

func printReport(report *models.Report) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 FEEDBACK DIGEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Period: %s\n", report.Period)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 CSI: %.0f (%s) from %d signals\n", report.CSIScore, report.Band, report.TotalSignals)
	fmt.Printf("📝 %s\n", report.Summary)

	fmt.Println("\n💭 Sentiment:")
	for _, s := range []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		fmt.Printf("   • %-10s %d\n", string(s)+":", report.SentimentBreakdown[s])
	}

	fmt.Println("\n📍 Categories:")
	for _, c := range models.Categories {
		if n := report.IssueCounts[c]; n > 0 {
			fmt.Printf("   • %-28s %d\n", string(c)+":", n)
		}
	}

	fmt.Println("\n🔎 Highlights:")
	for i, h := range report.Highlights {
		fmt.Printf("   %d. [%s] %s (%d/5)\n", i+1, h.Post.Source, h.Post.Text, h.Rating)
	}

	fmt.Println("\n🚩 Unresolved cases:")
	for _, c := range report.Unresolved {
		fmt.Printf("   • %-7s %-22s %s -> %s\n", c.Routing.Priority, c.Intake.Classification, c.Intake.Summary, c.Routing.Team)
	}
	fmt.Println(strings.Repeat("=", 70))
}

func saveReport(ctx context.Context, report *models.Report) error {
	out, err := storage.NewLocalStorage("test_output")
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("digest_%s.json", report.GeneratedAt.Format("2006-01-02_15-04-05"))
	if err := out.Store(ctx, name, data); err != nil {
		return err
	}

	fmt.Printf("\n💾 Report saved to: test_output/%s\n", name)
	return nil
}

func samplePosts() []models.Post {
	now := time.Now()
	return []models.Post{
		{ID: "reddit_s1", Source: models.SourceReddit, Author: "dallas_dan", PostedAt: now.Add(-2 * time.Hour),
			Text: "Loving the upgraded 5G in Dallas, speeds are great"},
		{ID: "reddit_s2", Source: models.SourceReddit, Author: "nyc_nora", PostedAt: now.Add(-3 * time.Hour),
			Text: "Coverage dropped again in NYC, this is frustrating"},
		{ID: "twitter_s3", Source: models.SourceTwitter, Author: "seattle_sam", PostedAt: now.Add(-5 * time.Hour),
			Text: "Got charged twice on my bill this month, terrible"},
		{ID: "twitter_s4", Source: models.SourceTwitter, Author: "miami_mia", PostedAt: now.Add(-8 * time.Hour),
			Text: "App login failing on iOS 17"},
		{ID: "app_s5", Source: models.SourceApp, Author: models.DefaultName, PostedAt: now.Add(-12 * time.Hour),
			Text: "Store staff in Houston were amazing, thanks"},
	}
}

func sampleSubmissions() []models.Submission {
	now := time.Now()
	return []models.Submission{
		{FeedbackID: "preview-1", Name: "Dana", Problem: "I was charged twice on my bill", SubmittedAt: now.Add(-time.Hour)},
		{FeedbackID: "preview-2", Name: "Lee", Problem: "App crashes on bill view", SubmittedAt: now.Add(-2 * time.Hour)},
	}
}
