// Package config
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Address        string
	Mode           string
	Interval       time.Duration
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	DBPath         string

	NetDevPath    string
	NetInterfaces []string

	SignalSource  string
	MMCLIModem    string
	SignalRefresh time.Duration

	LocationSource      string
	GPSDAddr            string
	LocationStatic      string
	LocationTimeout     time.Duration
	LocationRefresh     time.Duration
	LocationMinInterval time.Duration
	LocationPolicy      string

	DeliveryBuffer int

	Region    string
	Condition string

	MDNSEnable   bool
	MDNSInstance string
}

const (
	ModeServe    = "serve"
	ModeStream   = "stream"
	ModeSnapshot = "snapshot"
)

const (
	SignalSourceMMCLI = "mmcli"
	SignalSourcePush  = "push"
	SignalSourceNone  = "none"
)

const (
	LocationSourceGPSD   = "gpsd"
	LocationSourceStatic = "static"
	LocationSourceNone   = "none"
)

const (
	LocationPolicyOptional = "optional"
	LocationPolicyRequired = "required"
)

func Load() *Config {
	godotenv.Load()

	return &Config{
		Address:        getString("HTTP_ADDR", ":3000"),
		Mode:           oneOf(getString("MODE", ModeServe), ModeServe, ModeServe, ModeStream, ModeSnapshot),
		Interval:       getDuration("SAMPLE_INTERVAL", time.Second),
		LogLevel:       getString("LOG_LEVEL", "info"),
		LogFormat:      getString("LOG_FORMAT", "text"),
		AllowedOrigins: getList("ALLOWED_ORIGINS"),
		DBPath:         getString("DB_PATH", "netsampler.db"),

		NetDevPath:    getString("NET_DEV_PATH", "/proc/net/dev"),
		NetInterfaces: getList("NET_INTERFACES"),

		SignalSource:  oneOf(getString("SIGNAL_SOURCE", SignalSourceNone), SignalSourceNone, SignalSourceMMCLI, SignalSourcePush, SignalSourceNone),
		MMCLIModem:    getString("MMCLI_MODEM", "any"),
		SignalRefresh: getDuration("SIGNAL_REFRESH", 5*time.Second),

		LocationSource:      oneOf(getString("LOCATION_SOURCE", LocationSourceNone), LocationSourceNone, LocationSourceGPSD, LocationSourceStatic, LocationSourceNone),
		GPSDAddr:            getString("GPSD_ADDR", "127.0.0.1:2947"),
		LocationStatic:      os.Getenv("LOCATION_STATIC"),
		LocationTimeout:     getDuration("LOCATION_TIMEOUT", 10*time.Second),
		LocationRefresh:     getDurationAllowZero("LOCATION_REFRESH", 0),
		LocationMinInterval: getDuration("LOCATION_MIN_INTERVAL", 5*time.Second),
		LocationPolicy:      oneOf(getString("LOCATION_POLICY", LocationPolicyOptional), LocationPolicyOptional, LocationPolicyOptional, LocationPolicyRequired),

		DeliveryBuffer: getInt("DELIVERY_BUFFER", 16),

		Region:    os.Getenv("SAMPLER_REGION"),
		Condition: os.Getenv("SAMPLER_CONDITION"),

		MDNSEnable:   getBool("MDNS_ENABLE", false),
		MDNSInstance: getString("MDNS_INSTANCE", "netsampler"),
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// getDurationAllowZero accepts "0" to switch a feature off.
func getDurationAllowZero(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// oneOf returns v when it is one of allowed, fallback otherwise.
func oneOf(v, fallback string, allowed ...string) string {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
