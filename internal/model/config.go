package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds every tunable of the engine and its collaborators
type Config struct {
	Layout      LayoutConfig      `yaml:"layout" mapstructure:"layout"`
	Items       ItemsConfig       `yaml:"items" mapstructure:"items"`
	Linking     LinkingConfig     `yaml:"linking" mapstructure:"linking"`
	QA          QAConfig          `yaml:"qa" mapstructure:"qa"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Sink        SinkConfig        `yaml:"sink" mapstructure:"sink"`
}

// LayoutConfig tunes column clustering and paragraph merging
type LayoutConfig struct {
	ColumnOverlapThreshold float64 `yaml:"column_overlap_threshold" mapstructure:"column_overlap_threshold"`
	MergeGapMultiplier     float64 `yaml:"merge_gap_multiplier" mapstructure:"merge_gap_multiplier"`
	MergeOverlapThreshold  float64 `yaml:"merge_overlap_threshold" mapstructure:"merge_overlap_threshold"`
}

// ItemsConfig tunes item grouping
type ItemsConfig struct {
	// HeadlineBodyMaxGapRatio is the max headline-to-body gap as a fraction of page height
	HeadlineBodyMaxGapRatio float64 `yaml:"headline_body_max_gap_ratio" mapstructure:"headline_body_max_gap_ratio"`
}

// LinkingConfig tunes cross-page story linking
type LinkingConfig struct {
	MinSimilarity    float64       `yaml:"min_similarity" mapstructure:"min_similarity"`
	MinEntityOverlap float64       `yaml:"min_entity_overlap" mapstructure:"min_entity_overlap"`
	EmbedBodyWords   int           `yaml:"embed_body_words" mapstructure:"embed_body_words"`
	EmbeddingTimeout time.Duration `yaml:"embedding_timeout" mapstructure:"embedding_timeout"`
}

// QAConfig tunes layout quality scoring and the fallback rule chain
type QAConfig struct {
	MinConfidence    float64   `yaml:"min_confidence" mapstructure:"min_confidence"`
	MinCoverage      float64   `yaml:"min_coverage" mapstructure:"min_coverage"`
	MinBlocks        int       `yaml:"min_blocks" mapstructure:"min_blocks"`
	MaxAdBodyRatio   float64   `yaml:"max_ad_body_ratio" mapstructure:"max_ad_body_ratio"`
	MinScore         float64   `yaml:"min_score" mapstructure:"min_score"`
	ColumnGapRatio   float64   `yaml:"column_gap_ratio" mapstructure:"column_gap_ratio"`
	MaxColumns       int       `yaml:"max_columns" mapstructure:"max_columns"`
	HeadlineFontSize float64   `yaml:"headline_font_size" mapstructure:"headline_font_size"`
	Weights          QAWeights `yaml:"weights" mapstructure:"weights"`
}

// QAWeights weights the composite layout quality curves
type QAWeights struct {
	Confidence float64 `yaml:"confidence" mapstructure:"confidence"`
	Coverage   float64 `yaml:"coverage" mapstructure:"coverage"`
	Blocks     float64 `yaml:"blocks" mapstructure:"blocks"`
	Columns    float64 `yaml:"columns" mapstructure:"columns"`
	Headlines  float64 `yaml:"headlines" mapstructure:"headlines"`
}

// ScoringConfig holds the signal weight tables for the explainable scorers
type ScoringConfig struct {
	AdThreshold       float64            `yaml:"ad_threshold" mapstructure:"ad_threshold"`
	AdWeights         map[string]float64 `yaml:"ad_weights" mapstructure:"ad_weights"`
	SalienceThreshold float64            `yaml:"salience_threshold" mapstructure:"salience_threshold"`
	SalienceWeights   map[string]float64 `yaml:"salience_weights" mapstructure:"salience_weights"`
}

// EmbeddingConfig selects the optional embedding collaborator
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, cohere, ollama, "" (disabled)
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig configures the embedding and fetch caches
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// HTTPConfig configures remote document fetching
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`     // Pages processed in parallel
	Documents int `yaml:"documents" mapstructure:"documents"` // Documents processed in parallel (batch)
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose      bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeText  bool `yaml:"include_text" mapstructure:"include_text"`
	IncludeItems bool `yaml:"include_items" mapstructure:"include_items"`
}

// SinkConfig configures the downstream persistence collaborators
type SinkConfig struct {
	Dir          string   `yaml:"dir,omitempty" mapstructure:"dir"`
	S3Bucket     string   `yaml:"s3_bucket,omitempty" mapstructure:"s3_bucket"`
	S3Prefix     string   `yaml:"s3_prefix,omitempty" mapstructure:"s3_prefix"`
	S3Region     string   `yaml:"s3_region,omitempty" mapstructure:"s3_region"`
	KafkaBrokers []string `yaml:"kafka_brokers,omitempty" mapstructure:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic,omitempty" mapstructure:"kafka_topic"`
}

// DefaultAdWeights is the ad-candidate signal weight table (sums to 1)
func DefaultAdWeights() map[string]float64 {
	return map[string]float64{
		"cta_keywords":    0.30,
		"contact_density": 0.25,
		"price_mentions":  0.15,
		"image_ratio":     0.10,
		"emphasis":        0.10,
		"length":          0.10,
	}
}

// DefaultSalienceWeights is the salience signal weight table (sums to 1)
func DefaultSalienceWeights() map[string]float64 {
	return map[string]float64{
		"placement":     0.25,
		"headline_size": 0.25,
		"area_ratio":    0.20,
		"length":        0.15,
		"repetition":    0.15,
	}
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	cacheDir := ".broadsheet-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".broadsheet", "cache")
	}

	return &Config{
		Layout: LayoutConfig{
			ColumnOverlapThreshold: 0.6,
			MergeGapMultiplier:     1.5,
			MergeOverlapThreshold:  0.7,
		},
		Items: ItemsConfig{
			HeadlineBodyMaxGapRatio: 0.10,
		},
		Linking: LinkingConfig{
			MinSimilarity:    0.32,
			MinEntityOverlap: 0.2,
			EmbedBodyWords:   120,
			EmbeddingTimeout: 30 * time.Second,
		},
		QA: QAConfig{
			MinConfidence:    0.5,
			MinCoverage:      0.1,
			MinBlocks:        3,
			MaxAdBodyRatio:   2.0,
			MinScore:         0.3,
			ColumnGapRatio:   0.08,
			MaxColumns:       6,
			HeadlineFontSize: 14,
			Weights: QAWeights{
				Confidence: 0.25,
				Coverage:   0.25,
				Blocks:     0.20,
				Columns:    0.15,
				Headlines:  0.15,
			},
		},
		Scoring: ScoringConfig{
			AdThreshold:       0.5,
			AdWeights:         DefaultAdWeights(),
			SalienceThreshold: 0.5,
			SalienceWeights:   DefaultSalienceWeights(),
		},
		Embedding: EmbeddingConfig{
			Provider:          "", // Disabled by default
			Timeout:           30,
			RequestsPerSecond: 5,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Broadsheet/0.1 (+https://github.com/ppiankov/broadsheet)",
			MaxBodyBytes:      50 << 20,
			RespectRobots:     true,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Concurrency: ConcurrencyConfig{
			Workers:   runtime.NumCPU(),
			Documents: 2,
		},
		Output: OutputConfig{
			IncludeText:  true,
			IncludeItems: true,
		},
	}
}
