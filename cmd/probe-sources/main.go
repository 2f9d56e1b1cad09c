package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhosigiri/FeedbackAI/internal/analysis"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/llm"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/sources"
)

func main() {
	fmt.Println("🔍 FeedbackAI - Source Connectivity Probe")
	fmt.Println("=========================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	query := models.SourceQuery{Query: cfg.DefaultQuery, Limit: 3}

	fmt.Println("\n📡 Probing sources...")
	fmt.Println(strings.Repeat("-", 40))

	// direct submissions live in the server's case store, so the app source shows as disabled here
	for _, src := range analysis.BuildSources(cfg, nil) {
		probeSource(ctx, src, query)
	}

	fmt.Println("\n🧠 Probing language model...")
	fmt.Println(strings.Repeat("-", 40))
	probeProvider(ctx, cfg)

	fmt.Println("\n✅ Probe completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure missing credentials in .env")
	fmt.Println("   • Run the service with: go run ./cmd/server")
}

func probeSource(ctx context.Context, source sources.Source, query models.SourceQuery) {
	fmt.Printf("🔸 Testing %s... ", source.GetName())

	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED (missing credentials)\n")
		return
	}

	start := time.Now()
	posts, err := source.FetchPosts(ctx, query)
	if err != nil {
		fmt.Printf("❌ ERROR after %v: %v\n", time.Since(start).Round(time.Millisecond), err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d posts in %v)\n", len(posts), time.Since(start).Round(time.Millisecond))
	for _, post := range posts {
		location := "unknown location"
		if post.Location != nil {
			location = post.Location.Raw
		}
		fmt.Printf("   📝 %q (%s)\n", truncate(post.Text, 80), location)
	}
}

func probeProvider(ctx context.Context, cfg *config.Config) {
	provider, err := llm.NewProvider(cfg)
	if errors.Is(err, llm.ErrNotConfigured) {
		fmt.Println("⚠️  No provider configured, the heuristic classifier will be used")
		return
	}
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("🔸 Testing %s... ", provider.Name())
	start := time.Now()
	reply, err := provider.Complete(ctx, llm.Request{
		System: "Reply with a JSON object.",
		Prompt: `Return {"status": "ok"}.`,
		JSON:   true,
	})
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	fmt.Printf("✅ SUCCESS in %v: %s\n", time.Since(start).Round(time.Millisecond), truncate(reply, 80))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
