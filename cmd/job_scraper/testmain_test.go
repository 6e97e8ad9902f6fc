package main

import (
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	// Try to load .env file - ignore error if it doesn't exist (CI environment)
	_ = godotenv.Load()

	// Never touch the developer's real keychain from tests.
	keyring.MockInit()

	os.Exit(m.Run())
}
