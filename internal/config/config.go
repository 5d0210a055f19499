package config

import (
	"flag"
	"os"

	"github.com/bz888/cardadvisor/internal/api"
	"github.com/joho/godotenv"
)

const (
	defaultAddr       = "127.0.0.1:5000"
	defaultOllamaHost = "localhost:11434"
	defaultModel      = "deepseek-r1:latest"
)

type Config struct {
	Dev     bool
	LogPath string

	// Endpoint is the chat backend the client posts to.
	Endpoint string

	// Serve starts the bundled backend on Addr, forwarding to Ollama.
	Serve      bool
	Addr       string
	OllamaHost string
	Model      string
}

// Parse reads an optional .env file, then the environment, then args.
// Flags win over environment variables.
func Parse(args []string) (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	var cfg Config
	fs := flag.NewFlagSet("cardadvisor", flag.ContinueOnError)
	fs.BoolVar(&cfg.Dev, "dev", false, "Development mode")
	fs.StringVar(&cfg.LogPath, "logPath", "", "Path to save the log file")
	fs.StringVar(&cfg.Endpoint, "endpoint", env("CARDADVISOR_ENDPOINT", api.DefaultEndpoint), "Chat backend URL")
	fs.BoolVar(&cfg.Serve, "serve", false, "Start the bundled recommendation backend")
	fs.StringVar(&cfg.Addr, "addr", env("CARDADVISOR_ADDR", defaultAddr), "Listen address of the bundled backend")
	fs.StringVar(&cfg.OllamaHost, "ollamaHost", env("OLLAMA_HOST", defaultOllamaHost), "Ollama host used by the bundled backend")
	fs.StringVar(&cfg.Model, "model", env("OLLAMA_MODEL", defaultModel), "Ollama model used by the bundled backend")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
