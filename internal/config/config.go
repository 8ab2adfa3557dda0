// Package config reads the relay's settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	AllowedOrigins   []string // empty allows every origin
	AutoCreateBoards bool
	SendBuffer       int
	MaxMessageSize   int64
	PanZoomRate      float64
	PanZoomBurst     int
	BoardIdleTTL     time.Duration
	CleanupInterval  time.Duration
	SanitizeText     bool
}

// Default: settings used when nothing is configured
func Default() Config {
	return Config{
		Port:             8080,
		AutoCreateBoards: true,
		SendBuffer:       256,
		MaxMessageSize:   1 << 20,
		PanZoomRate:      60,
		PanZoomBurst:     20,
		BoardIdleTTL:     time.Hour,
		CleanupInterval:  15 * time.Minute,
	}
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, falling back to Default for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	cfg.Port = p.intValue("PORT", cfg.Port)
	cfg.AllowedOrigins = splitList(getenv("DOMAINS"))
	cfg.AutoCreateBoards = p.boolValue("AUTO_CREATE_BOARDS", cfg.AutoCreateBoards)
	cfg.SendBuffer = p.intValue("SEND_BUFFER", cfg.SendBuffer)
	cfg.MaxMessageSize = int64(p.intValue("MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.PanZoomRate = p.floatValue("PANZOOM_RATE", cfg.PanZoomRate)
	cfg.PanZoomBurst = p.intValue("PANZOOM_BURST", cfg.PanZoomBurst)
	cfg.BoardIdleTTL = p.durationValue("BOARD_IDLE_TTL", cfg.BoardIdleTTL)
	cfg.CleanupInterval = p.durationValue("CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.SanitizeText = p.boolValue("SANITIZE_TEXT", cfg.SanitizeText)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OriginAllowed: reports whether a browser origin may connect
func (c Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (c Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid PORT %d", c.Port)
	case c.SendBuffer <= 0:
		return errors.New("SEND_BUFFER must be positive")
	case c.MaxMessageSize <= 0:
		return errors.New("MAX_MESSAGE_SIZE must be positive")
	case c.PanZoomRate < 0:
		return errors.New("PANZOOM_RATE must not be negative")
	case c.PanZoomRate > 0 && c.PanZoomBurst <= 0:
		return errors.New("PANZOOM_BURST must be positive when PANZOOM_RATE is set")
	case c.BoardIdleTTL <= 0 || c.CleanupInterval <= 0:
		return errors.New("BOARD_IDLE_TTL and CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so FromEnv can report it once.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != "" && p.err == nil
}

func (p *parser) fail(key, value string, err error) {
	p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
}

func (p *parser) intValue(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) floatValue(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) boolValue(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) durationValue(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
