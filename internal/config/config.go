package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "time"     // time parses the fiscal bridge timeout

    "github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to sign JWTs
    AccessTTLMin   int           // access token time‑to‑live in minutes
    RefreshTTLDays int           // refresh token time‑to‑live in days
    BcryptCost     int           // bcrypt cost for password hashing
    BridgeURL      string        // base URL of the fiscal seal bridge sidecar
    BridgeTimeout  time.Duration // per-request timeout for bridge calls
    SealBypass     bool          // admin test mode: emit without probing the device
    AdminEmail     string        // bootstrap admin account email (optional)
    AdminPassword  string        // bootstrap admin account password (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The fiscal bridge
// settings default to the local sidecar so a workstation with the bridge
// on its standard port needs no extra variables.
func Load() Config {
    // A missing .env is fine: production supplies real environment variables.
    _ = godotenv.Load()

    return Config{
        Env:            must("APP_ENV"),             // environment (dev/test/prod)
        Port:           must("APP_PORT"),            // port to bind the HTTP server
        DBUser:         must("DB_USER"),             // database user
        DBPass:         os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:         must("DB_HOST"),             // database host
        DBPort:         must("DB_PORT"),             // database port
        DBName:         must("DB_NAME"),             // database name
        JWTSecret:      must("JWT_SECRET"),          // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),      // bcrypt cost factor
        BridgeURL:      envStr("FISCAL_BRIDGE_URL", "http://127.0.0.1:9404"), // seal bridge sidecar
        BridgeTimeout:  envDur("FISCAL_BRIDGE_TIMEOUT", 10*time.Second),      // bridge call timeout
        SealBypass:     envBool("FISCAL_SEAL_BYPASS", false),                 // skip device probes (test mode)
        AdminEmail:     os.Getenv("ADMIN_EMAIL"),    // bootstrap admin email (empty = no bootstrap)
        AdminPassword:  os.Getenv("ADMIN_PASSWORD"), // bootstrap admin password
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
