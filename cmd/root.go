package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "rubric-evaluator"
)

type Config struct {
	DataDir      string            `mapstructure:"data-dir"`
	ExamplesFile string            `mapstructure:"examples-file"`
	Knowledge    KnowledgeConfig   `mapstructure:"knowledge"`
	Store        StoreConfig       `mapstructure:"store"`
	Gemini       GeminiConfig      `mapstructure:"gemini"`
	Assets       AssetsConfig      `mapstructure:"assets"`
	Qualitative  QualitativeConfig `mapstructure:"qualitative"`
	Scoring      ScoringConfig     `mapstructure:"scoring"`
	Delivery     DeliveryConfig    `mapstructure:"delivery"`
	Watch        WatchConfig       `mapstructure:"watch"`
}

type KnowledgeConfig struct {
	InstitutionsFile   string `mapstructure:"institutions-file"`
	CertificationsFile string `mapstructure:"certifications-file"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type AssetsConfig struct {
	BatchSize int `mapstructure:"batch-size"`
}

type QualitativeConfig struct {
	TopK int `mapstructure:"top-k"`
}

type ScoringConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
}

type DeliveryConfig struct {
	OutboxDir  string `mapstructure:"outbox-dir"`
	WebhookURL string `mapstructure:"webhook-url"`
	TokenFile  string `mapstructure:"token-file"`
	UserAgent  string `mapstructure:"user-agent"`
}

type WatchConfig struct {
	InboxDir      string `mapstructure:"inbox-dir"`
	MaxConcurrent int    `mapstructure:"max-concurrent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "rubric-evaluator builds per-job-posting rubrics and evaluates job applications against them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("delivery.token-file", "DELIVERY_TOKEN_FILE"); err != nil {
		log.Fatalf("binding DELIVERY_TOKEN_FILE environment variable: %v", err)
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rubric-evaluator.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the built rubric assets")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func setDefaults() {
	viper.SetDefault("data-dir", "./data")
	viper.SetDefault("examples-file", "./data/examples.json")
	viper.SetDefault("knowledge.institutions-file", "./data/kb/universities_kb.json")
	viper.SetDefault("knowledge.certifications-file", "./data/kb/certifications_kb.json")
	viper.SetDefault("store.driver", storeDriverSQLite)
	viper.SetDefault("store.path", "./data/db/rag.sqlite")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.embedding-model", "gemini-embedding-001")
	viper.SetDefault("gemini.max-retries", 3)
	viper.SetDefault("gemini.max-log-length", 200)
	viper.SetDefault("assets.batch-size", 8)
	viper.SetDefault("qualitative.top-k", 3)
	viper.SetDefault("scoring.similarity-threshold", 0.7)
	viper.SetDefault("delivery.outbox-dir", "./data/outbox")
	viper.SetDefault("delivery.user-agent", app)
	viper.SetDefault("watch.inbox-dir", "./data/inbox")
	viper.SetDefault("watch.max-concurrent", 2)
}

func initConfig() {
	// The version command works without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// A missing .env is fine; variables may come from the environment itself.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Defaults are enough when no config file was asked for.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
