// cmd/tools/materials-indexer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"affiliate-portal/internal/common/config"
	"affiliate-portal/internal/common/database"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/search"
	"affiliate-portal/internal/store"
)

func main() {
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	ensureCmd := flag.NewFlagSet("ensure", flag.ExitOnError)

	configPath := syncCmd.String("config", "", "Path to config file (default: configs/config.yaml lookup)")
	materialType := syncCmd.String("type", "", "Only sync one material type (image, video, text, guide, social_post)")
	timeout := syncCmd.Duration("timeout", 2*time.Minute, "Overall timeout")

	ensureConfigPath := ensureCmd.String("config", "", "Path to config file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		syncCmd.Parse(os.Args[2:])
		cfg := mustLoadConfig(*configPath)

		typ := models.MaterialType(*materialType)
		if typ != "" && !typ.Valid() {
			fmt.Printf("Error: unknown material type %q\n", *materialType)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		n, err := syncMaterials(ctx, cfg, typ)
		if err != nil {
			fmt.Printf("Sync failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d materials into %s\n", n, cfg.Search.MaterialsIndex)

	case "ensure":
		ensureCmd.Parse(os.Args[2:])
		cfg := mustLoadConfig(*ensureConfigPath)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		index, err := openIndex(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if err := index.EnsureIndex(ctx); err != nil {
			fmt.Printf("Ensure index failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Index %s is ready.\n", index.Name())

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoadConfig(path string) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openIndex(cfg *config.Config) (*search.Index, error) {
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	return search.NewIndex(esClient.Client, cfg.Search.MaterialsIndex, cfg.Search.DefaultSize), nil
}

func syncMaterials(ctx context.Context, cfg *config.Config, typ models.MaterialType) (int, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	materials, err := store.New(pg).ListActiveMaterials(ctx, store.MaterialFilter{Type: typ})
	if err != nil {
		return 0, fmt.Errorf("load materials: %w", err)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return 0, err
	}
	if err := index.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	return index.Sync(ctx, materials)
}

func help() {
	fmt.Println("Usage: materials-indexer <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  sync      Copy active materials from PostgreSQL into the search index")
	fmt.Println("            -config <path> -type <material type> -timeout <duration>")
	fmt.Println("  ensure    Create the materials index with its mapping if missing")
	fmt.Println("            -config <path>")
	fmt.Println("  help      Show this help message")
}
