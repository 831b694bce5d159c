package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/oryx-ai/conductor/internal/cli"
	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/store/model"
	"github.com/oryx-ai/conductor/internal/store/sqlite"
)

// Seeds the database with the default classification rules, a couple of
// starter scopes, and disabled provider shells ready for credentials.
func main() {
	verbose := flag.Bool("v", false, "Print each seeded record as JSON")
	flag.Parse()

	repo, err := sqlite.NewSQLiteStorage("conductor.db")
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()

	for _, rule := range services.DefaultRules() {
		rec, err := model.RuleRecordFrom(rule)
		if err != nil {
			log.Fatal(err)
		}
		if err := repo.Rules().Upsert(ctx, rec); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s Seeded rule: %s\n", cli.CheckMark(), rule.ID)
		if *verbose {
			cli.PrettyPrint(rule)
		}
	}

	now := time.Now().UTC()
	scopes := []domain.Scope{
		{
			ID:   uuid.New().String(),
			Type: domain.ScopeChat,
			Name: "General Chat",
			Context: domain.ScopeContext{
				Goals:       []string{"Answer user questions helpfully"},
				Constraints: []string{"Keep answers under 300 words"},
				Tone:        "friendly",
			},
			LLMPreferences: domain.LLMPreferences{
				Preferred: []string{"anthropic-main"},
				Excluded:  []string{},
			},
			Metadata:  map[string]interface{}{"seeded": true},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:   uuid.New().String(),
			Type: domain.ScopeEssay,
			Name: "Essay Drafting",
			Context: domain.ScopeContext{
				Goals:       []string{"Produce structured long-form writing"},
				Constraints: []string{"Cite sources when provided"},
				Format:      "markdown",
			},
			LLMPreferences: domain.LLMPreferences{
				Preferred: []string{"openai-main"},
				Excluded:  []string{},
				Fallback:  []string{"anthropic-main"},
			},
			Metadata:  map[string]interface{}{"seeded": true},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, s := range scopes {
		rec, err := model.ScopeRecordFrom(&s)
		if err != nil {
			log.Fatal(err)
		}
		if err := repo.Scopes().Insert(ctx, rec); err != nil {
			log.Printf("%s Scope %q might already exist: %v", cli.CrossMark(), s.Name, err)
			continue
		}
		fmt.Printf("%s Seeded scope: %s (%s)\n", cli.CheckMark(), s.Name, s.ID)
		if *verbose {
			cli.PrettyPrint(s)
		}
	}

	providers := []domain.ProviderConfig{
		{
			ID: "openai-main", Type: "openai", Name: "OpenAI",
			Capabilities: []string{"text", "code", "embeddings"},
			DefaultParams: domain.ModelParams{Temperature: 0.7, MaxTokens: 2048},
		},
		{
			ID: "anthropic-main", Type: "anthropic", Name: "Anthropic",
			Capabilities: []string{"text", "code"},
			DefaultParams: domain.ModelParams{Temperature: 0.7, MaxTokens: 2048},
			Extra:        map[string]string{"version": "2023-06-01"},
		},
		{
			ID: "google-main", Type: "google", Name: "Google Gemini",
			Capabilities: []string{"text", "vision"},
			DefaultParams: domain.ModelParams{Temperature: 0.7, MaxTokens: 2048},
		},
		{
			ID: "local-ollama", Type: "ollama", Name: "Ollama Local",
			Capabilities: []string{"text"},
			BaseURL:      "http://localhost:11434",
		},
	}
	for _, p := range providers {
		rec, err := model.ProviderRecordFrom(p)
		if err != nil {
			log.Fatal(err)
		}
		if err := repo.Providers().Upsert(ctx, rec); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s Seeded provider: %s\n", cli.CheckMark(), p.ID)
	}

	fmt.Println()
	fmt.Println(cli.Style("Successfully seeded database!", cli.Bold))
	fmt.Printf("%s Providers are disabled until credentials are set via PUT /v1/providers/:id/key.\n", cli.Arrow())
}
