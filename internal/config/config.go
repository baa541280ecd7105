package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func GetFloat(key string, fallback float64) float64 {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}

type Config struct {
	Port        string
	DatabaseURL string

	RedisURL        string
	RedisCatalogTTL time.Duration

	AMQPURL      string
	AMQPExchange string

	SeedRequestsPath string
	SeedSitesPath    string

	AverageSpeedKmh       float64
	ServiceMinutesPerStop float64
	DisposalMinutes       float64
	MaxRouteRequests      int

	RateLimitRPS   float64
	RateLimitBurst int

	// Default route start, used when a plan request omits one.
	DepotSet bool
	DepotLat float64
	DepotLng float64
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	return Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: Get("DATABASE_URL", ""),

		RedisURL:        Get("REDIS_URL", ""),
		RedisCatalogTTL: GetDuration("REDIS_CATALOG_TTL", 5*time.Minute),

		AMQPURL:      Get("AMQP_URL", ""),
		AMQPExchange: Get("AMQP_EXCHANGE", "routes_topic"),

		SeedRequestsPath: Get("SEED_REQUESTS_PATH", "data/seeds/requests.json"),
		SeedSitesPath:    Get("SEED_SITES_PATH", "data/seeds/disposal_sites.yaml"),

		AverageSpeedKmh:       GetFloat("AVERAGE_SPEED_KMH", 30),
		ServiceMinutesPerStop: GetFloat("SERVICE_MINUTES_PER_STOP", 30),
		DisposalMinutes:       GetFloat("DISPOSAL_MINUTES", 30),
		MaxRouteRequests:      GetInt("MAX_ROUTE_REQUESTS", 100),

		RateLimitRPS:   GetFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: GetInt("RATE_LIMIT_BURST", 40),

		DepotSet: Get("DEPOT_LAT", "") != "" && Get("DEPOT_LNG", "") != "",
		DepotLat: GetFloat("DEPOT_LAT", 0),
		DepotLng: GetFloat("DEPOT_LNG", 0),
	}
}
