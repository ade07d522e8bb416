package config // package config loads application configuration from environment variables

import (
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time is used for the importer interval

	"github.com/joho/godotenv" // godotenv loads a local .env file in development
	"github.com/sirupsen/logrus"
)

// Duplicate submission modes for the counting ledger.  In "correct" mode a
// second submission for the same (session, article, round, counter) tuple
// overwrites the existing count and records a correction.  In "reject" mode
// the second submission fails with a conflict and the caller must use the
// explicit correction endpoint instead.
const (
	DuplicateModeCorrect = "correct"
	DuplicateModeReject  = "reject"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	DuplicateMode  string        // counting ledger duplicate handling: correct | reject
	SourceDSN      string        // DSN of the external reference-stock database (empty disables the importer)
	SyncInterval   time.Duration // how often the article importer runs
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file is honoured when present.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	_ = godotenv.Load() // missing .env is fine outside development
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		DuplicateMode:  ParseDuplicateMode(os.Getenv("COUNT_DUPLICATE_MODE")),
		SourceDSN:      os.Getenv("STOCK_SOURCE_DSN"),
		SyncInterval:   envDur("STOCK_SYNC_INTERVAL", 6*time.Hour),
	}
}

// ParseDuplicateMode normalizes the COUNT_DUPLICATE_MODE value.  Anything
// other than an explicit "reject" falls back to the correcting behaviour,
// which is the ledger's primary mode.
func ParseDuplicateMode(v string) string {
	if v == DuplicateModeReject {
		return DuplicateModeReject
	}
	return DuplicateModeCorrect
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
