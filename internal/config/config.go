package config

import "strings"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Groq    GroqConfig
	API     APIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type APIConfig struct {
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Groq: GroqConfig{
			Model:   "llama-3.3-70b-versatile",
			BaseURL: "https://api.groq.com/openai/v1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.medrep.hcpcrm) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/hcpcrm/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (HCPCRM_*, plus GROQ_API_KEY for the LLM
// credential) override backend values on all platforms.
//
// The Groq API key is optional: without it the server still serves the
// interaction CRUD endpoints, and the AI endpoints report a
// configuration error until the key is set.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for the Groq key if still empty.
	if cfg.Groq.APIKey == "" {
		if key, err := kc.Get("hcpcrm", "groq_api_key"); err == nil && key != "" {
			cfg.Groq.APIKey = key
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
