// Package config loads service configuration: built-in defaults, then an
// optional TOML file, then VPARSE_* environment variables and CLI flags.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "VPARSE"

// Candidate kinds
const (
	KindRedirect = "redirect"
	KindExtract  = "extract"
)

// Rotation policies
const (
	RotationRoundRobin     = "round_robin"
	RotationPreferredFirst = "preferred_first"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Duration is a time.Duration that decodes from strings such as "1500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	Log        LogConfig         `toml:"log"`
	Resolver   ResolverConfig    `toml:"resolver"`
	Candidates []CandidateConfig `toml:"candidates"`
	Platforms  []PlatformConfig  `toml:"platforms"`
	Cache      CacheConfig       `toml:"cache"`
	Ytdlp      YtdlpConfig       `toml:"ytdlp"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	StaticDir      string   `toml:"static_dir"`
	SlowRequest    Duration `toml:"slow_request"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ResolverConfig struct {
	Rotation           string            `toml:"rotation"`
	MaxAttempts        int               `toml:"max_attempts"`
	AttemptTimeout     Duration          `toml:"attempt_timeout"`
	RetryDelay         Duration          `toml:"retry_delay"`
	CandidateDelay     Duration          `toml:"candidate_delay"`
	Headers            map[string]string `toml:"headers"`
	InsecureSkipVerify bool              `toml:"insecure_skip_verify"`
	FetchTitle         bool              `toml:"fetch_title"`
}

// CandidateConfig describes one upstream resolution strategy
type CandidateConfig struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Prefix string `toml:"prefix"`
}

// PlatformConfig describes one supported video platform
type PlatformConfig struct {
	Name     string   `toml:"name"`
	Domains  []string `toml:"domains"`
	Patterns []string `toml:"patterns"`
}

type CacheConfig struct {
	Backend    string   `toml:"backend"`
	Size       int      `toml:"size"`
	TTL        Duration `toml:"ttl"`
	RedisAddr  string   `toml:"redis_addr"`
	SQLitePath string   `toml:"sqlite_path"`
}

type YtdlpConfig struct {
	Path    string   `toml:"path"`
	Format  string   `toml:"format"`
	Timeout Duration `toml:"timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5000",
			AllowedOrigins: []string{"*"},
			SlowRequest:    Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Resolver: ResolverConfig{
			Rotation:       RotationRoundRobin,
			MaxAttempts:    2,
			AttemptTimeout: Duration{10 * time.Second},
			RetryDelay:     Duration{1 * time.Second},
			CandidateDelay: Duration{1 * time.Second},
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
				"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
			},
			InsecureSkipVerify: true,
		},
		Candidates: []CandidateConfig{
			{Name: "default", Kind: KindRedirect, Prefix: "https://www.8090g.cn/?url="},
			{Name: "backup-1", Kind: KindRedirect, Prefix: "https://jx.jsonplayer.com/player/?url="},
			{Name: "backup-2", Kind: KindRedirect, Prefix: "https://jx.xmflv.com/?url="},
		},
		Platforms: []PlatformConfig{
			{Name: "tencent", Domains: []string{"v.qq.com"}},
			{Name: "iqiyi", Domains: []string{"iqiyi.com"}},
			{Name: "youku", Domains: []string{"youku.com"}},
			{Name: "mgtv", Domains: []string{"mgtv.com"}},
			{Name: "bilibili", Domains: []string{"bilibili.com"}},
			{Name: "sohu", Domains: []string{"sohu.com"}},
			{Name: "letv", Domains: []string{"le.com"}},
			{Name: "pptv", Domains: []string{"pptv.com"}},
			{Name: "m1905", Domains: []string{"1905.com"}},
			{Name: "funshion", Domains: []string{"fun.tv"}},
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			Size:       100,
			TTL:        Duration{10 * time.Minute},
			RedisAddr:  "localhost:6379",
			SQLitePath: "vparse-cache.db",
		},
		Ytdlp: YtdlpConfig{
			Path:    "yt-dlp",
			Format:  "best",
			Timeout: Duration{60 * time.Second},
		},
	}
}

// Load reads the config file at path (if non-empty) over the defaults, then
// applies overrides present in v. A nil v skips overrides.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if v != nil {
		cfg.applyOverrides(v)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// decodeFile merges the TOML file into cfg. Lists given in the file replace
// the defaults entirely.
func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var file Config
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parsing config %s: unknown keys %v", path, undecoded)
	}

	// Decode a second time onto the defaults so scalar fields absent from the
	// file keep their default values.
	if _, err := toml.Decode(string(data), c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if md.IsDefined("candidates") {
		c.Candidates = file.Candidates
	}
	if md.IsDefined("platforms") {
		c.Platforms = file.Platforms
	}
	if md.IsDefined("resolver", "headers") {
		c.Resolver.Headers = file.Resolver.Headers
	}
	if md.IsDefined("server", "allowed_origins") {
		c.Server.AllowedOrigins = file.Server.AllowedOrigins
	}
	return nil
}

// NewViper returns a viper instance reading VPARSE_* environment variables,
// e.g. VPARSE_SERVER_ADDR for the key server.addr.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyOverrides copies the keys explicitly set in v (environment or changed
// flags) into the config.
func (c *Config) applyOverrides(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	dur := func(key string, dst *Duration) {
		if v.IsSet(key) {
			dst.Duration = v.GetDuration(key)
		}
	}

	str("server.addr", &c.Server.Addr)
	str("server.static_dir", &c.Server.StaticDir)
	str("log.level", &c.Log.Level)
	str("log.format", &c.Log.Format)
	str("resolver.rotation", &c.Resolver.Rotation)
	dur("resolver.attempt_timeout", &c.Resolver.AttemptTimeout)
	dur("resolver.retry_delay", &c.Resolver.RetryDelay)
	dur("resolver.candidate_delay", &c.Resolver.CandidateDelay)
	str("cache.backend", &c.Cache.Backend)
	str("cache.redis_addr", &c.Cache.RedisAddr)
	str("cache.sqlite_path", &c.Cache.SQLitePath)
	dur("cache.ttl", &c.Cache.TTL)
	str("ytdlp.path", &c.Ytdlp.Path)

	if v.IsSet("resolver.max_attempts") {
		c.Resolver.MaxAttempts = v.GetInt("resolver.max_attempts")
	}
	if v.IsSet("resolver.fetch_title") {
		c.Resolver.FetchTitle = v.GetBool("resolver.fetch_title")
	}
	if v.IsSet("cache.size") {
		c.Cache.Size = v.GetInt("cache.size")
	}
	if v.IsSet("server.allowed_origins") {
		c.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
}

// normalize trims and deduplicates list values
func (c *Config) normalize() {
	clean := func(items []string, lower bool) []string {
		items = lo.Map(items, func(s string, _ int) string {
			s = strings.TrimSpace(s)
			if lower {
				s = strings.ToLower(s)
			}
			return s
		})
		return lo.Uniq(lo.Compact(items))
	}

	c.Server.AllowedOrigins = clean(c.Server.AllowedOrigins, false)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Resolver.Rotation = strings.ToLower(strings.TrimSpace(c.Resolver.Rotation))

	for i := range c.Candidates {
		c.Candidates[i].Name = strings.TrimSpace(c.Candidates[i].Name)
		c.Candidates[i].Prefix = strings.TrimSpace(c.Candidates[i].Prefix)
		c.Candidates[i].Kind = strings.ToLower(strings.TrimSpace(c.Candidates[i].Kind))
		if c.Candidates[i].Kind == "" {
			c.Candidates[i].Kind = KindRedirect
		}
		if c.Candidates[i].Name == "" {
			c.Candidates[i].Name = fmt.Sprintf("line-%d", i+1)
		}
	}
	for i := range c.Platforms {
		c.Platforms[i].Name = strings.TrimSpace(c.Platforms[i].Name)
		c.Platforms[i].Domains = clean(c.Platforms[i].Domains, true)
		c.Platforms[i].Patterns = clean(c.Platforms[i].Patterns, false)
	}
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !lo.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("unsupported log level %q (valid: debug, info, warn, error)", c.Log.Level)
	}
	if !lo.Contains([]string{"json", "text"}, c.Log.Format) {
		return fmt.Errorf("unsupported log format %q (valid: json, text)", c.Log.Format)
	}

	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateCandidates(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	return c.validateCache()
}

func (c *Config) validateResolver() error {
	r := c.Resolver
	if !lo.Contains([]string{RotationRoundRobin, RotationPreferredFirst}, r.Rotation) {
		return fmt.Errorf("unsupported rotation %q (valid: %s, %s)", r.Rotation, RotationRoundRobin, RotationPreferredFirst)
	}
	if r.MaxAttempts < 1 || r.MaxAttempts > 10 {
		return fmt.Errorf("resolver.max_attempts must be between 1 and 10, got %d", r.MaxAttempts)
	}
	if r.AttemptTimeout.Duration <= 0 {
		return fmt.Errorf("resolver.attempt_timeout must be positive")
	}
	if r.RetryDelay.Duration < 0 || r.CandidateDelay.Duration < 0 {
		return fmt.Errorf("resolver delays cannot be negative")
	}
	return nil
}

func (c *Config) validateCandidates() error {
	if len(c.Candidates) == 0 {
		return fmt.Errorf("at least one candidate is required")
	}

	names := make(map[string]bool, len(c.Candidates))
	for i, cand := range c.Candidates {
		if names[cand.Name] {
			return fmt.Errorf("candidate %d: duplicate name %q", i, cand.Name)
		}
		names[cand.Name] = true

		switch cand.Kind {
		case KindRedirect:
			if !strings.HasPrefix(cand.Prefix, "http://") && !strings.HasPrefix(cand.Prefix, "https://") {
				return fmt.Errorf("candidate %q: prefix must be an http(s) URL", cand.Name)
			}
		case KindExtract:
			if len(c.Candidates) != 1 {
				return fmt.Errorf("candidate %q: an extract candidate must be the only candidate", cand.Name)
			}
			if c.Ytdlp.Path == "" {
				return fmt.Errorf("ytdlp.path cannot be empty with an extract candidate")
			}
		default:
			return fmt.Errorf("candidate %q: unsupported kind %q (valid: %s, %s)", cand.Name, cand.Kind, KindRedirect, KindExtract)
		}
	}
	return nil
}

func (c *Config) validatePlatforms() error {
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	for i, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("platform %d: name cannot be empty", i)
		}
		if len(p.Domains) == 0 && len(p.Patterns) == 0 {
			return fmt.Errorf("platform %q: needs at least one domain or pattern", p.Name)
		}
		for _, pattern := range p.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("platform %q: invalid pattern %q: %w", p.Name, pattern, err)
			}
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheNone:
		return nil
	case CacheMemory:
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive for the memory backend")
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr cannot be empty")
		}
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path cannot be empty")
		}
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive for the sqlite backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q (valid: none, memory, redis, sqlite)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

// HasExtractor reports whether the candidate list uses yt-dlp
func (c *Config) HasExtractor() bool {
	return lo.ContainsBy(c.Candidates, func(cand CandidateConfig) bool {
		return cand.Kind == KindExtract
	})
}
