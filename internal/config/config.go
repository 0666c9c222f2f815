package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For boolean parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name
	DBDriver   string // mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBPath     string // SQLite file path
	JWTSecret  string // JWT secret key
	JWTTTL     time.Duration
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number

	InviteCodeRequired  bool  // Registration needs a valid invite code
	DefaultInviteQuota  int   // Invite quota granted to every new user
	PointsForRegister   int64 // Registration bonus
	PointsForDailyLogin int64 // First login of the day bonus

	LeaderboardMax      int           // Upper bound for leaderboard size
	LeaderboardCacheTTL time.Duration // How long a leaderboard page is cached

	AuthRatePerSecond float64 // Token refill rate for auth endpoints
	AuthRateBurst     int     // Burst size for auth endpoints
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getString("APP_PORT", "8080"),
		IsProd:     getBool("IS_PROD", false),
		LogLevel:   getString("LOG_LEVEL", "info"),
		DBDriver:   getString("DB_DRIVER", "mysql"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getString("DB_HOST", "127.0.0.1"),
		DBPort:     getString("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     getString("DB_PATH", "data/aigc.db"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     time.Duration(getInt("JWT_TTL_HOURS", 24*7)) * time.Hour,
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    getInt("REDIS_DB", 0),

		InviteCodeRequired:  getBool("INVITE_CODE_REQUIRED", true),
		DefaultInviteQuota:  getInt("DEFAULT_INVITE_QUOTA", 5),
		PointsForRegister:   int64(getInt("POINTS_FOR_REGISTER", 100)),
		PointsForDailyLogin: int64(getInt("POINTS_FOR_DAILY_LOGIN", 10)),

		LeaderboardMax:      getInt("LEADERBOARD_MAX", 50),
		LeaderboardCacheTTL: time.Duration(getInt("LEADERBOARD_CACHE_SECONDS", 60)) * time.Second,

		AuthRatePerSecond: getFloat("AUTH_RATE_PER_SECOND", 1),
		AuthRateBurst:     getInt("AUTH_RATE_BURST", 5),
	}
}

// MySQLDSN builds the Data Source Name used by the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
