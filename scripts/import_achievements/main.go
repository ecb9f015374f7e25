// Command import_achievements loads achievement definitions from an xlsx
// workbook into the database. Rows are matched by name; existing
// definitions are overwritten.
//
//	go run ./scripts/import_achievements -file achievements.xlsx
//	go run ./scripts/import_achievements -dump defaults.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mroshb/betpals/internal/cache"
	"github.com/mroshb/betpals/internal/config"
	"github.com/mroshb/betpals/internal/database"
	"github.com/mroshb/betpals/internal/export"
	"github.com/mroshb/betpals/internal/services"
)

func main() {
	file := flag.String("file", "", "workbook to import")
	dump := flag.String("dump", "", "write the default catalogue to this workbook and exit")
	flag.Parse()

	if *dump != "" {
		if err := writeDefaults(*dump); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Wrote %d achievements to %s\n", len(database.DefaultAchievements()), *dump)
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer database.Close(db)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	achievements, err := export.ReadAchievements(f)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	deps := services.Deps{}
	if cfg.RedisAddr != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Println("redis unavailable, cached definitions expire after CACHE_TTL:", err)
		} else {
			defer client.Close()
			deps.Cache = cache.NewRedisCache(client, cache.KeyPrefix, cfg.CacheTTL)
		}
	}

	svc := services.NewAchievementService(db, services.NewRepositories(db), deps)
	imported, err := svc.ImportDefinitions(ctx, achievements)
	if err != nil {
		fmt.Printf("Some rows failed:\n%v\n", err)
	}

	fmt.Printf("Successfully imported %d of %d achievements.\n", imported, len(achievements))
}

func writeDefaults(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteAchievements(out, database.DefaultAchievements()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
