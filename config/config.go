package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	ServerPort string
	JWTSecret  string

	// Mutation-surface rate limit: RateLimit requests per RateWindow,
	// counted per principal.
	RateLimit  int
	RateWindow time.Duration
}

// Load reads configuration from a .env file when one exists, then from the
// environment. Database settings and the token secret are required.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("no .env file loaded: %v", err)
	}
	return &Config{
		DBHost:     must("DB_HOST"),
		DBUser:     must("DB_USER"),
		DBPassword: must("DB_PASSWORD"),
		DBName:     must("DB_NAME"),
		DBPort:     must("DB_PORT"),
		ServerPort: getenv("SERVER_PORT", "8080"),
		JWTSecret:  must("JWT_SECRET"),
		RateLimit:  getenvInt("RATE_LIMIT", 120),
		RateWindow: time.Duration(getenvInt("RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func must(name string) string {
	val := os.Getenv(name)
	if val == "" {
		log.Fatalf("Environment variable %s not set", name)
	}
	return val
}

func getenv(name, fallback string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return fallback
}

func getenvInt(name string, fallback int) int {
	val := os.Getenv(name)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("Environment variable %s is not a number: %v", name, err)
	}
	return n
}

// InitDb opens the Postgres connection used by every component.
func InitDb(cfg *Config) *gorm.DB {
	connectionDetails := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(connectionDetails), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to the database: %v", err)
	}

	log.Println("Successfully connected to the database")
	return db
}
