package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	AssetsPath    string
	DBPath        string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string

	// External tools
	YtDlpBin      string
	WhisperServer string // path to the whisper-server binary
	WhisperModel  string // path to a ggml/gguf model file
	WhisperDevice string // "auto", "cuda", "vulkan", "cpu"

	// Analysis backend (OpenAI-compatible; an Ollama server works too)
	OpenAIKey     string
	OpenAIBaseURL string
	AnalysisModel string

	// Caption fast-path / pipeline defaults
	CookieBrowser  string // preferred browser cookie store, tried first
	MaxRetries     int
	BackoffBase    float64 // seconds
	CaptionDelay   float64 // seconds between consecutive caption attempts
	UseCaptionPath bool
	RotateCookies  bool
	CopyFiles      bool
	KeepMedia      bool
}

func Load() *Config {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	assetsPath := getEnv("ASSETS_PATH", "assets")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts.")
	}

	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	maxRetries, _ := strconv.Atoi(getEnv("CAPTION_MAX_RETRIES", "3"))
	backoffBase, _ := strconv.ParseFloat(getEnv("CAPTION_BACKOFF_SECONDS", "8"), 64)
	captionDelay, _ := strconv.ParseFloat(getEnv("CAPTION_DELAY_SECONDS", "10"), 64)

	return &Config{
		Port:          port,
		AssetsPath:    assetsPath,
		DBPath:        getEnv("DB_PATH", assetsPath+"/transcriptai.db"),
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:   corsOrigins,

		YtDlpBin:      getEnv("YTDLP_BIN", "yt-dlp"),
		WhisperServer: getEnv("WHISPER_SERVER_BIN", "whisper-server"),
		WhisperModel:  getEnv("WHISPER_MODEL", "models/ggml-medium.en.bin"),
		WhisperDevice: getEnv("WHISPER_DEVICE", "auto"),

		OpenAIKey:     getEnv("OPENAI_API_KEY", "ollama"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "http://localhost:11434/v1"),
		AnalysisModel: getEnv("ANALYSIS_MODEL", "llama3.2"),

		CookieBrowser:  strings.ToLower(strings.TrimSpace(os.Getenv("YT_COOKIE_BROWSER"))),
		MaxRetries:     maxRetries,
		BackoffBase:    backoffBase,
		CaptionDelay:   captionDelay,
		UseCaptionPath: getEnvBool("CAPTION_FAST_PATH", true),
		RotateCookies:  getEnvBool("COOKIE_ROTATION", true),
		CopyFiles:      getEnvBool("COPY_LOCAL_FILES", true),
		KeepMedia:      getEnvBool("KEEP_MEDIA", false),
	}
}

// Overlay returns a copy of the config with stored settings applied on top
// of the env-derived values. get is typically store.GetSetting; the fallback
// keeps env/default behavior for keys that were never saved. Called at use
// sites (per batch, per analysis request) so saved settings take effect
// without a restart.
func (c *Config) Overlay(get func(key, fallback string) string) *Config {
	out := *c
	out.WhisperModel = get("whisper_model", c.WhisperModel)
	out.WhisperDevice = get("whisper_device", c.WhisperDevice)
	out.CookieBrowser = get("cookie_browser", c.CookieBrowser)
	out.AnalysisModel = get("analysis_model", c.AnalysisModel)
	out.OpenAIKey = get("openai_api_key", c.OpenAIKey)
	out.OpenAIBaseURL = get("openai_base_url", c.OpenAIBaseURL)
	return &out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "yes"
}
