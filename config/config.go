package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL        = "https://api.orbit.network"
	defaultTimeoutSeconds = 15
)

// Config holds all environment settings for the application
type Config struct {
	AppKey         string
	APIBaseURL     string
	HTTPTimeout    time.Duration
	KeyringService string
	StateDir       string
}

// LoadConfig loads configuration from environment variables or .env file
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	config := &Config{
		AppKey:         os.Getenv("ORBIT_APP_KEY"),
		APIBaseURL:     os.Getenv("ORBIT_API_BASE_URL"),
		KeyringService: os.Getenv("ORBIT_KEYRING_SERVICE"),
		StateDir:       os.Getenv("ORBIT_STATE_DIR"),
	}

	// Set default values
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultBaseURL
	}
	timeoutSeconds := defaultTimeoutSeconds
	if raw := os.Getenv("ORBIT_HTTP_TIMEOUT_SECONDS"); raw != "" {
		timeoutSeconds, err = strconv.Atoi(raw)
		if err != nil || timeoutSeconds <= 0 {
			return nil, fmt.Errorf("ORBIT_HTTP_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
		}
	}
	config.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	// Validate required fields
	var missingVars []string
	if config.AppKey == "" {
		missingVars = append(missingVars, "ORBIT_APP_KEY")
	}

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("required environment variables are missing: %v", missingVars)
	}

	return config, nil
}

// PrintMissingVarsHelp prints helpful information when required variables are missing
//
//goland:noinspection GoUnhandledErrorResult
func PrintMissingVarsHelp() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Please ensure these variables are set either:")
	fmt.Fprintln(os.Stderr, "1. As environment variables in your shell")
	fmt.Fprintln(os.Stderr, "2. In a .env file in the same directory as this executable")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Example .env file content:")
	fmt.Fprintln(os.Stderr, "ORBIT_APP_KEY=key_extracted_from_the_mobile_app")
	fmt.Fprintln(os.Stderr, "ORBIT_API_BASE_URL=https://api.orbit.network")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "The app key is the static client key the official mobile app sends")
	fmt.Fprintln(os.Stderr, "as X-Orbit-App-Key; capture it from an intercepted app session.")
}
