// Package config holds the immutable configuration snapshot consumed by the
// finder and the loader that builds it from YAML files and the environment.
package config

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/optimode/emailfinder/types"
)

var defaultConfigPath = "./config/config.yaml"

// Config is passed by value into the finder and never mutated afterwards.
// Use Clone before handing a copy to code that may modify it.
type Config struct {
	Log     LogConfig        `yaml:"log"`
	DNS     DNSConfig        `yaml:"dns"`
	Fetch   FetchConfig      `yaml:"fetch"`
	Search  SearchConfig     `yaml:"search"`
	Domain  DomainConfig     `yaml:"domain"`
	Formats FormatsConfig    `yaml:"formats"`
	SMTP    SMTPConfig       `yaml:"smtp"`
	Tiers   types.TierPolicy `yaml:"tiers"`
	Pacing  PacingConfig     `yaml:"pacing"`
	Output  OutputConfig     `yaml:"output"`
	Server  ServerConfig     `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // text or json
}

type DNSConfig struct {
	// Mode selects the resolver: doh, udp or system.
	Mode        string        `yaml:"mode" env:"EMAILFINDER_DNS_MODE"`
	DoHEndpoint string        `yaml:"doh_endpoint" env:"EMAILFINDER_DOH_ENDPOINT"`
	Server      string        `yaml:"server" env:"EMAILFINDER_DNS_SERVER"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type FetchConfig struct {
	// Session selects the page session: http or browser.
	Session         string        `yaml:"session" env:"EMAILFINDER_FETCH_SESSION"`
	Headless        bool          `yaml:"headless" env:"EMAILFINDER_HEADLESS"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BackoffFactor   float64       `yaml:"backoff_factor"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	ManualSolveWait time.Duration `yaml:"manual_solve_wait"`
	// RateLimit is the number of navigations per second, 0 disables pacing.
	RateLimit               float64  `yaml:"rate_limit"`
	UserAgent               string   `yaml:"user_agent"`
	WaitSelector            string   `yaml:"wait_selector"`
	ChallengeMarkers        []string `yaml:"challenge_markers"`
	ContinueSelectors       []string `yaml:"continue_selectors"`
	ChallengeFrameSelectors []string `yaml:"challenge_frame_selectors"`
	CheckboxSelector        string   `yaml:"checkbox_selector"`
}

type SearchConfig struct {
	// Provider selects the search backend: scrape, api or gemini.
	Provider        string `yaml:"provider" env:"EMAILFINDER_SEARCH_PROVIDER"`
	BaseURL         string `yaml:"base_url"`
	ResultSelector  string `yaml:"result_selector"`
	LinkSelector    string `yaml:"link_selector"`
	TitleSelector   string `yaml:"title_selector"`
	SnippetSelector string `yaml:"snippet_selector"`
	APIURL          string `yaml:"api_url"`
	APIKey          string `yaml:"api_key" env:"GOOGLE_SEARCH_API_KEY"`
	EngineID        string `yaml:"engine_id" env:"GOOGLE_SEARCH_ENGINE_ID"`
	GeminiAPIKey    string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel     string `yaml:"gemini_model" env:"GEMINI_MODEL"`
	GeminiBaseURL   string `yaml:"gemini_base_url"`
}

type DomainConfig struct {
	QueryTemplate string   `yaml:"query_template"`
	MaxResults    int      `yaml:"max_results"`
	Blocklist     []string `yaml:"blocklist"`
}

type FormatsConfig struct {
	Queries          []string                       `yaml:"queries"`
	MinSnippetLength int                            `yaml:"min_snippet_length"`
	Fallback         []types.FormatToken            `yaml:"fallback"`
	Signatures       map[types.FormatToken][]string `yaml:"signatures"`
	Known            map[string]types.FormatToken   `yaml:"known"`
}

type SMTPConfig struct {
	HeloDomain string `yaml:"helo_domain" env:"EMAILFINDER_HELO_DOMAIN"`
	// MailFrom may contain {domain}, replaced by the probed domain.
	MailFrom       string        `yaml:"mail_from" env:"EMAILFINDER_MAIL_FROM"`
	Port           string        `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	MaxMXHosts     int           `yaml:"max_mx_hosts"`
	StartTLS       bool          `yaml:"starttls"`
	TLSVerify      bool          `yaml:"tls_verify"`
	SOCKS5         string        `yaml:"socks5" env:"EMAILFINDER_SOCKS5"`
}

type PacingConfig struct {
	DelayMin time.Duration `yaml:"delay_min"`
	DelayMax time.Duration `yaml:"delay_max"`
}

type OutputConfig struct {
	KeepInvalid bool `yaml:"keep_invalid"`
}

type ServerConfig struct {
	Listen         string        `yaml:"listen" env:"EMAILFINDER_LISTEN"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns a fully populated configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		DNS: DNSConfig{
			Mode:        "doh",
			DoHEndpoint: "https://dns.google/resolve",
			Server:      "8.8.8.8:53",
			Timeout:     5 * time.Second,
			CacheTTL:    5 * time.Minute,
		},
		Fetch: FetchConfig{
			Session:         "http",
			Headless:        true,
			MaxAttempts:     3,
			BackoffFactor:   2.0,
			PageLoadTimeout: 15 * time.Second,
			ManualSolveWait: 20 * time.Second,
			RateLimit:       0.5,
			UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			WaitSelector:    "body",
			ChallengeMarkers: []string{
				"captcha",
				"unusual traffic",
				"i am not a robot",
				"i'm not a robot",
				"are you a robot",
				"detected unusual",
				"please click here if you are not redirected",
				"if you're having trouble accessing google search",
			},
			ContinueSelectors: []string{
				"#recaptcha-anchor",
				"input[type=submit]",
				"button[type=submit]",
				"a[href*='continue']",
			},
			ChallengeFrameSelectors: []string{
				"iframe[src*='recaptcha']",
				"iframe[title*='challenge']",
			},
			CheckboxSelector: ".recaptcha-checkbox-border",
		},
		Search: SearchConfig{
			Provider:        "scrape",
			BaseURL:         "https://www.google.com/search",
			ResultSelector:  ".tF2Cxc, .g",
			LinkSelector:    ".yuRUbf a, a",
			TitleSelector:   "h3",
			SnippetSelector: ".VwiC3b, .aCOpRe",
			APIURL:          "https://www.googleapis.com/customsearch/v1",
			GeminiModel:     "gemini-2.5-flash",
		},
		Domain: DomainConfig{
			QueryTemplate: "{company} official website",
			MaxResults:    3,
		},
		Formats: FormatsConfig{
			Queries: []string{
				"{company} email format pattern",
				"{company} company email format",
			},
			MinSnippetLength: 20,
			Fallback: []types.FormatToken{
				types.FormatFirstInitialLast,
				types.FormatFirstDotLast,
				types.FormatFirst,
				types.FormatFirstLast,
				types.FormatFirstUnderscoreLast,
			},
			Known: map[string]types.FormatToken{
				"plaid":         types.FormatFirstInitialLast,
				"fticonsulting": types.FormatFirstDotLast,
				"merge":         types.FormatFirst,
				"accenture":     types.FormatFirstDotLast,
			},
		},
		SMTP: SMTPConfig{
			MailFrom:       "verify@{domain}",
			Port:           "25",
			ConnectTimeout: 10 * time.Second,
			CommandTimeout: 10 * time.Second,
			MaxMXHosts:     1,
			StartTLS:       true,
		},
		Tiers: types.DefaultTierPolicy(),
		Pacing: PacingConfig{
			DelayMin: time.Second,
			DelayMax: 3 * time.Second,
		},
		Server: ServerConfig{
			Listen:         ":8080",
			RequestTimeout: 5 * time.Minute,
		},
	}
}

// Load reads the configuration the same way for every entry point:
// defaults, then the file (explicit path, $CONFIG or ./config/config.yaml),
// then a sibling ".local" file, then environment variables.
// A missing default file is not an error.
func Load(file string) (Config, error) {
	cfg := Default()

	if file == "" {
		file = os.Getenv("CONFIG")
	}
	if file == "" {
		currentDir, _ := os.Getwd()
		candidate := path.Join(currentDir, defaultConfigPath)
		_, err := os.Stat(candidate)
		switch {
		case err == nil:
			file = candidate
		case !errors.Is(err, os.ErrNotExist):
			return cfg, errors.Wrap(err, "config: stat default file")
		}
	}

	if file != "" {
		if err := cleanenv.ReadConfig(file, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: read %s", file)
		}
		local := strings.TrimSuffix(file, path.Ext(file)) + ".local" + path.Ext(file)
		if _, err := os.Stat(local); err == nil {
			if err := cleanenv.ReadConfig(local, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "config: read %s", local)
			}
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: read env")
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.DNS.Mode {
	case "doh", "udp", "system":
	default:
		return errors.Errorf("config: unknown dns.mode %q", c.DNS.Mode)
	}
	switch c.Fetch.Session {
	case "http", "browser":
	default:
		return errors.Errorf("config: unknown fetch.session %q", c.Fetch.Session)
	}
	switch c.Search.Provider {
	case "scrape", "api":
	case "gemini":
		if c.Search.GeminiAPIKey == "" {
			return errors.New("config: search.gemini_api_key is required for the gemini provider")
		}
	default:
		return errors.Errorf("config: unknown search.provider %q", c.Search.Provider)
	}
	if c.Search.Provider == "api" && (c.Search.APIKey == "" || c.Search.EngineID == "") {
		return errors.New("config: search.api_key and search.engine_id are required for the api provider")
	}
	if c.Fetch.MaxAttempts < 1 {
		return errors.Errorf("config: fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts)
	}
	if c.Fetch.BackoffFactor < 1 {
		return errors.Errorf("config: fetch.backoff_factor must be at least 1, got %v", c.Fetch.BackoffFactor)
	}
	if c.Pacing.DelayMin < 0 || c.Pacing.DelayMax < c.Pacing.DelayMin {
		return errors.Errorf("config: invalid pacing range [%s, %s]", c.Pacing.DelayMin, c.Pacing.DelayMax)
	}
	if len(c.Formats.Fallback) == 0 {
		return errors.New("config: formats.fallback must not be empty")
	}
	if err := c.Tiers.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Clone returns a deep copy, so the caller may not alias slices or maps.
func (c Config) Clone() Config {
	out := c
	out.Fetch.ChallengeMarkers = cloneStrings(c.Fetch.ChallengeMarkers)
	out.Fetch.ContinueSelectors = cloneStrings(c.Fetch.ContinueSelectors)
	out.Fetch.ChallengeFrameSelectors = cloneStrings(c.Fetch.ChallengeFrameSelectors)
	out.Domain.Blocklist = cloneStrings(c.Domain.Blocklist)
	out.Formats.Queries = cloneStrings(c.Formats.Queries)
	out.Formats.Fallback = append([]types.FormatToken(nil), c.Formats.Fallback...)
	if c.Formats.Signatures != nil {
		out.Formats.Signatures = make(map[types.FormatToken][]string, len(c.Formats.Signatures))
		for k, v := range c.Formats.Signatures {
			out.Formats.Signatures[k] = cloneStrings(v)
		}
	}
	if c.Formats.Known != nil {
		out.Formats.Known = make(map[string]types.FormatToken, len(c.Formats.Known))
		for k, v := range c.Formats.Known {
			out.Formats.Known[k] = v
		}
	}
	return out
}

// Dump writes the configuration as YAML.
func Dump(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "config: encode yaml")
	}
	return enc.Close()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
