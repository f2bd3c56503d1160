package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv" // optional .env file for local runs
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL     = "mysql"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; optional ones carry a default.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // mysql, firestore or memory

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	FirestoreProjectID       string // Google Cloud project holding the collection
	FirestoreCredentialsFile string // service account JSON; empty uses ambient credentials
	FirestoreCollection      string // collection name, "reservations" by default

	SessionSecret       string        // secret used to sign session handles
	SessionTTL          time.Duration // idle time after which a session is closed
	FormConfirmationTTL time.Duration // how long the "saved" confirmation stays up

	VenueTimezone      string // IANA zone used for the local calendar
	ContactHost        string // messaging host of the contact link
	ContactCountryCode string // country code prefixed to phone numbers

	AMQPURL       string // RabbitMQ URL; empty disables events
	EventsLogDir  string // directory of the reservation events log
	ChangeChannel string // Redis pub/sub channel for change signals
	OTLPEndpoint  string // OTLP/HTTP collector; empty disables tracing
}

// Load reads configuration values from environment variables (after an
// optional .env file) and returns a Config. Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message. Database variables are only required by the mysql
// driver, the project id only by the firestore driver.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", DriverMySQL)),

		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirestoreCollection:      getenv("FIRESTORE_COLLECTION", "reservations"),

		SessionSecret:       must("SESSION_SECRET"),
		SessionTTL:          envDur("SESSION_TTL", 30*time.Minute),
		FormConfirmationTTL: envDur("FORM_CONFIRMATION_TTL", 5*time.Second),

		VenueTimezone:      getenv("VENUE_TIMEZONE", "America/Sao_Paulo"),
		ContactHost:        getenv("CONTACT_HOST", "wa.me"),
		ContactCountryCode: getenv("CONTACT_COUNTRY_CODE", "55"),

		AMQPURL:       firstEnv("RABBITMQ_URL", "AMQP_URL"),
		EventsLogDir:  getenv("EVENTS_LOG_DIR", "logs"),
		ChangeChannel: getenv("REDIS_CHANGE_CHANNEL", "reservations:changed"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverFirestore:
		cfg.FirestoreProjectID = must("FIRESTORE_PROJECT_ID")
	case DriverMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want mysql, firestore or memory)", cfg.StoreDriver)
	}
	return cfg
}

// Location resolves VenueTimezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		log.Printf("unknown VENUE_TIMEZONE %q, using local time: %v", c.VenueTimezone, err)
		return time.Local
	}
	return loc
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
