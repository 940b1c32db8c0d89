package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// EngineConfig describes the outbound interview-engine collaborator.
type EngineConfig struct {
	BaseURL         string
	GeneratePath    string
	EvaluatePath    string
	CheckPath       string
	GenerateTimeout time.Duration
	EvaluateTimeout time.Duration
	Mock            bool

	DefaultQuestionCount int
	MaxQuestionCount     int
}

var (
	engineConfig *EngineConfig
	engineOnce   sync.Once
)

func LoadEngineConfig() *EngineConfig {
	engineOnce.Do(func() {
		engineConfig = &EngineConfig{
			BaseURL:              getenv("ENGINE_BASE_URL", "http://localhost:8000"),
			GeneratePath:         getenv("ENGINE_GENERATE_PATH", "/api/v1/interviews/generate"),
			EvaluatePath:         getenv("ENGINE_EVALUATE_PATH", "/api/v1/interviews/evaluate"),
			CheckPath:            getenv("ENGINE_CHECK_PATH", "/api/v1/interviews/check"),
			GenerateTimeout:      getseconds("ENGINE_GENERATE_TIMEOUT", 20),
			EvaluateTimeout:      getseconds("ENGINE_EVALUATE_TIMEOUT", 30),
			Mock:                 os.Getenv("ENGINE_MOCK") == "true",
			DefaultQuestionCount: getint("DEFAULT_QUESTION_COUNT", 5),
			MaxQuestionCount:     getint("MAX_QUESTION_COUNT", 50),
		}
	})
	return engineConfig
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getseconds(key string, fallback int) time.Duration {
	return time.Duration(getint(key, fallback)) * time.Second
}
