package config

import (
	"os"
	"strings"
	"sync"
)

type AppConfig struct {
	Port           string
	JWTSecret      string
	EvaluationMode string
	RedisAddr      string
	CORSOrigins    []string
}

const (
	// EvaluationModeBatch requires a separate evaluate call once every
	// question has an answer.
	EvaluationModeBatch = "batch"
	// EvaluationModePerAnswer checks each answer with the engine as it is
	// recorded and lets the engine complete the session early.
	EvaluationModePerAnswer = "per_answer"
)

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		mode := os.Getenv("EVALUATION_MODE")
		if mode != EvaluationModePerAnswer {
			mode = EvaluationModeBatch
		}
		origins := []string{"*"}
		if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
			origins = strings.Split(raw, ",")
		}
		appConfig = &AppConfig{
			Port:           getenv("PORT", "8080"),
			JWTSecret:      getenv("JWT_SECRET", "dev"),
			EvaluationMode: mode,
			RedisAddr:      os.Getenv("REDIS_ADDR"),
			CORSOrigins:    origins,
		}
	})
	return appConfig
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
