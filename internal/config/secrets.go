package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the tool's secrets in the OS keychain.
const KeyringService = "job_scraper"

// Secret names accepted by the keyring helpers.
const (
	SecretOpenAI       = "openai"
	SecretGemini       = "gemini"
	SecretGoogleSearch = "google_search"
)

// Environment variables read as fallbacks.
const (
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvGoogleSearchAPIKey = "GOOGLE_SEARCH_API_KEY"
	EnvGoogleSearchCX     = "GOOGLE_SEARCH_CX"
	EnvSheetsCredentials  = "GOOGLE_SHEETS_CREDENTIALS"
	EnvSheetsShareEmail   = "SHEETS_SHARE_EMAIL"
)

var secretEnv = map[string]string{
	SecretOpenAI:       EnvOpenAIAPIKey,
	SecretGemini:       EnvGeminiAPIKey,
	SecretGoogleSearch: EnvGoogleSearchAPIKey,
}

// ErrUnknownSecret is returned for a secret name outside SecretNames.
var ErrUnknownSecret = errors.New("unknown secret name")

// Source says where a resolved value came from.
type Source string

// Sources in precedence order.
const (
	SourceFlag    Source = "flag"
	SourceFile    Source = "config file"
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
	SourceNone    Source = ""
)

// SecretNames lists the names the keyring helpers accept.
func SecretNames() []string {
	return []string{SecretOpenAI, SecretGemini, SecretGoogleSearch}
}

// ResolveSecret picks the first non-empty value from the flag, the config
// file, the secret's environment variable and the keyring, in that order.
func ResolveSecret(name, flagValue, fileValue string) (string, Source) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, SourceFlag
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v, SourceFile
	}
	if env, ok := secretEnv[name]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, SourceEnv
		}
	}
	if v, err := keyring.Get(KeyringService, name); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceKeyring
	}
	return "", SourceNone
}

// ResolveSetting picks the flag value, then the file value, then the environment.
func ResolveSetting(flagValue, fileValue, envName string) string {
	for _, v := range []string{flagValue, fileValue, os.Getenv(envName)} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// SetSecret stores a secret in the OS keyring.
func SetSecret(name, value string) error {
	if err := checkSecretName(name); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, name, value)
}

// DeleteSecret removes a secret from the OS keyring.
func DeleteSecret(name string) error {
	if err := checkSecretName(name); err != nil {
		return err
	}
	if err := keyring.Delete(KeyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("secret %q is not stored: %w", name, err)
		}
		return err
	}
	return nil
}

func checkSecretName(name string) error {
	if _, ok := secretEnv[name]; !ok {
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownSecret, name, strings.Join(SecretNames(), ", "))
	}
	return nil
}
