package model

import "time"

// Config is the complete policyscope configuration
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Cache  CacheConfig  `yaml:"cache"`
	LLM    LLMConfig    `yaml:"llm"`
	Notify NotifyConfig `yaml:"notify"`
	Server ServerConfig `yaml:"server"`
}

// HTTPConfig controls the outbound HTTP clients
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	HTTPProxy    string `yaml:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy"`
	NoProxy      string `yaml:"no_proxy"`
}

// FetchConfig controls discovery, racing, and extraction timing
type FetchConfig struct {
	// GraceDelay gives the discovery provider time to initialize before the
	// orchestrator asks it for links
	GraceDelay time.Duration `yaml:"grace_delay"`
	// PerFetchTimeout bounds a single candidate retrieval
	PerFetchTimeout time.Duration `yaml:"per_fetch_timeout"`
	// JoinTimeout bounds the combined terms+privacy race
	JoinTimeout time.Duration `yaml:"join_timeout"`
	// WatchdogTimeout forces a fallback analysis if a session is still not
	// done when it fires
	WatchdogTimeout time.Duration `yaml:"watchdog_timeout"`
	// MinContentLen is the minimum extracted text length accepted as a policy
	// document
	MinContentLen int `yaml:"min_content_len"`
	// ContainerMinLen is the minimum trimmed text length for a content
	// container to win the selector chain
	ContainerMinLen int `yaml:"container_min_len"`
	// MaxContentLen caps extracted text; longer text is truncated with a marker
	MaxContentLen int `yaml:"max_content_len"`
	// RespectRobots consults robots.txt before each candidate fetch
	RespectRobots bool `yaml:"respect_robots"`
	// RatePerDomain limits requests per second against a single domain
	RatePerDomain float64 `yaml:"rate_per_domain"`
	// RateBurst is the per-domain burst allowance
	RateBurst int `yaml:"rate_burst"`
}

// CacheConfig controls session/analysis retention and document caching
type CacheConfig struct {
	// TTL is the age past which sessions and analyses are evicted
	TTL time.Duration `yaml:"ttl"`
	// SweepInterval is how often the janitor scans for expired entries
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// ContentTTL is how long fetched policy documents are reused without
	// re-downloading; zero disables the content cache
	ContentTTL time.Duration `yaml:"content_ttl"`
	// Dir, when set, persists fetched documents on disk under this directory
	Dir string `yaml:"dir"`
}

// LLMConfig controls the judgment provider
type LLMConfig struct {
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	BaseURL   string        `yaml:"base_url"`
	// MaxPromptChars truncates policy text before it is sent for judgment
	MaxPromptChars int `yaml:"max_prompt_chars"`
}

// NotifyConfig holds the risk notification thresholds
type NotifyConfig struct {
	MediumThreshold int `yaml:"medium_threshold"`
	HighThreshold   int `yaml:"high_threshold"`
}

// ServerConfig controls serve mode
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults. The timing values mirror the
// behavior of the browser extension this service backs.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent:    "policyscope/0.1 (+https://github.com/policyscope/policyscope)",
			MaxBodyBytes: 2_000_000,
		},
		Fetch: FetchConfig{
			GraceDelay:      500 * time.Millisecond,
			PerFetchTimeout: 10 * time.Second,
			JoinTimeout:     20 * time.Second,
			WatchdogTimeout: 30 * time.Second,
			MinContentLen:   500,
			ContainerMinLen: 200,
			MaxContentLen:   100_000,
			RespectRobots:   true,
			RatePerDomain:   2,
			RateBurst:       4,
		},
		Cache: CacheConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
			ContentTTL:    time.Hour,
		},
		LLM: LLMConfig{
			Model:          "",
			MaxTokens:      1000,
			Timeout:        30 * time.Second,
			MaxPromptChars: 8000,
		},
		Notify: NotifyConfig{
			MediumThreshold: 40,
			HighThreshold:   70,
		},
		Server: ServerConfig{
			Addr: ":8477",
		},
	}
}
