package model

import "time"

// Config is the complete Veridex configuration.
// Hierarchy (highest to lowest priority): CLI flags, VERIDEX_* env vars,
// config file (~/.veridex/config.yaml), defaults.
type Config struct {
	Aggregate   AggregateConfig   `yaml:"aggregate" json:"aggregate"`
	Match       MatchConfig       `yaml:"match" json:"match"`
	Coverage    CoverageConfig    `yaml:"coverage" json:"coverage"`
	Penalty     PenaltyConfig     `yaml:"penalty" json:"penalty"`
	Consistency ConsistencyConfig `yaml:"consistency" json:"consistency"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// AggregateConfig controls conflict detection during aggregation
type AggregateConfig struct {
	// BucketSize is the coarse spatial bucket width (in characters) used
	// to group items for conflict detection. A heuristic, not a semantic
	// constant: tune per corpus.
	BucketSize int `yaml:"bucket_size" json:"bucket_size"`
}

// MatchConfig controls excerpt fuzzy matching in the claim validator
type MatchConfig struct {
	Threshold     float64 `yaml:"threshold" json:"threshold"`           // Tight-window similarity floor
	WideThreshold float64 `yaml:"wide_threshold" json:"wide_threshold"` // Expanded-window similarity floor
	WindowSlack   int     `yaml:"window_slack" json:"window_slack"`     // Chars of expansion on each side
	OCRTolerant   bool    `yaml:"ocr_tolerant" json:"ocr_tolerant"`     // Fold common OCR confusions before matching
}

// CoverageConfig controls the coverage auditor
type CoverageConfig struct {
	// MaxGapChars is the smallest gap that blocks completeness.
	// Gaps shorter than this are tolerated as micro-gaps.
	MaxGapChars int `yaml:"max_gap_chars" json:"max_gap_chars"`

	// LowCoveragePercent is the threshold below which a synthetic
	// low-coverage finding is emitted.
	LowCoveragePercent float64 `yaml:"low_coverage_percent" json:"low_coverage_percent"`
}

// PenaltyConfig controls the confidence policy
type PenaltyConfig struct {
	GlobalCap      float64 `yaml:"global_cap" json:"global_cap"`           // Maximum total penalty
	BaseConfidence float64 `yaml:"base_confidence" json:"base_confidence"` // Default starting confidence
}

// ConsistencyConfig controls the meta-consistency validator
type ConsistencyConfig struct {
	CountTolerance   int           `yaml:"count_tolerance" json:"count_tolerance"`     // Allowed citation-count drift
	PercentTolerance float64       `yaml:"percent_tolerance" json:"percent_tolerance"` // Allowed coverage-percent drift
	TimeTolerance    time.Duration `yaml:"time_tolerance" json:"time_tolerance"`      // Allowed timestamp skew
}

// ConcurrencyConfig controls worker pools
type ConcurrencyConfig struct {
	ProducerWorkers int     `yaml:"producer_workers" json:"producer_workers"`
	ArtifactWorkers int     `yaml:"artifact_workers" json:"artifact_workers"`
	RatePerProducer float64 `yaml:"rate_per_producer" json:"rate_per_producer"` // Requests per second
	Burst           int     `yaml:"burst" json:"burst"`
}

// CacheConfig controls the normalized-text cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Dir     string        `yaml:"dir" json:"dir"` // Empty means memory-only
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// LLMConfig configures the optional producer clients
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // openai, ollama, "" (disabled)
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"` // From environment only, never persisted
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // Seconds
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Aggregate: AggregateConfig{
			BucketSize: 100,
		},
		Match: MatchConfig{
			Threshold:     0.6,
			WideThreshold: 0.5,
			WindowSlack:   50,
			OCRTolerant:   true,
		},
		Coverage: CoverageConfig{
			MaxGapChars:        100,
			LowCoveragePercent: 70.0,
		},
		Penalty: PenaltyConfig{
			GlobalCap:      0.50,
			BaseConfidence: 0.95,
		},
		Consistency: ConsistencyConfig{
			CountTolerance:   2,
			PercentTolerance: 1.0,
			TimeTolerance:    5 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			ProducerWorkers: 4,
			ArtifactWorkers: 8,
			RatePerProducer: 1.0,
			Burst:           2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     1 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   60,
			MaxTokens: 4000,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
