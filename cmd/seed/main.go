// Command seed fills the configured database with fake forum activity.
package main

import (
	"flag"
	"log"
	"os"

	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/middleware"
	"forum/internal/seed"
)

func main() {
	def := seed.DefaultOptions()

	numUsers := flag.Int("users", def.Users, "Number of users to create")
	numPosts := flag.Int("posts", def.Posts, "Number of posts to create")
	comments := flag.Int("comments", def.CommentsPerPost, "Maximum comments per post")
	likeRatio := flag.Float64("like-ratio", def.LikeRatio, "Chance a user likes a given post")
	favRatio := flag.Float64("favorite-ratio", def.FavoriteRatio, "Chance a user favorites a given post")
	maxDays := flag.Int("days", def.MaxDays, "Spread post timestamps over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	shouldClean := flag.Bool("clean", def.Clean, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.InitLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	s := seed.NewSeeder(db, seed.Options{
		Users:           *numUsers,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		LikeRatio:       *likeRatio,
		FavoriteRatio:   *favRatio,
		MaxDays:         *maxDays,
		RandSeed:        *randSeed,
		Clean:           *shouldClean,
	})
	if _, err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All test users have the password: %s", seed.DefaultPassword)
}
