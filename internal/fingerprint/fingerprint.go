// Package fingerprint derives a stable pseudo-identity for the running
// device context.
//
// The fingerprint is a SHA-256 digest over a handful of environment
// attributes (user agent, locale, screen size, timezone, hostname). It is
// used only to partition persisted gate state so that two devices sharing
// a store do not collide. It is not a credential and is trivially spoofed.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Environment is the set of attributes a fingerprint is derived from.
type Environment struct {
	UserAgent    string `json:"userAgent"`
	Locale       string `json:"locale"`
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeight"`
	Timezone     string `json:"timezone"`
	Hostname     string `json:"hostname"`
}

// EnvProvider collects the ambient environment attributes.
type EnvProvider interface {
	Collect(ctx context.Context) (Environment, error)
}

// Deriver computes fingerprints.
type Deriver interface {
	Derive(ctx context.Context) (string, error)
}

// SHA256Deriver derives fingerprints by hashing the collected environment.
type SHA256Deriver struct {
	provider EnvProvider
}

// NewSHA256Deriver creates a deriver reading attributes from provider.
func NewSHA256Deriver(provider EnvProvider) *SHA256Deriver {
	return &SHA256Deriver{provider: provider}
}

// Derive collects the environment and returns its hex digest.
func (d *SHA256Deriver) Derive(ctx context.Context) (string, error) {
	env, err := d.provider.Collect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to collect environment: %w", err)
	}
	return Digest(env), nil
}

// Digest returns the hex-encoded SHA-256 of the joined attributes.
func Digest(env Environment) string {
	data := strings.Join([]string{
		env.UserAgent,
		env.Locale,
		strconv.Itoa(env.ScreenWidth) + "x" + strconv.Itoa(env.ScreenHeight),
		env.Timezone,
		env.Hostname,
	}, "|")

	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// SystemProvider reads attributes from the process environment.
type SystemProvider struct {
	// Version is embedded in the user agent string.
	Version string

	// Getenv and Hostname default to the os package functions.
	Getenv   func(string) string
	Hostname func() (string, error)
}

// NewSystemProvider creates a SystemProvider backed by the os package.
func NewSystemProvider(version string) *SystemProvider {
	return &SystemProvider{
		Version:  version,
		Getenv:   os.Getenv,
		Hostname: os.Hostname,
	}
}

// Collect gathers the environment attributes.
func (p *SystemProvider) Collect(ctx context.Context) (Environment, error) {
	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	hostnameFn := p.Hostname
	if hostnameFn == nil {
		hostnameFn = os.Hostname
	}

	hostname, err := hostnameFn()
	if err != nil {
		return Environment{}, fmt.Errorf("failed to read hostname: %w", err)
	}

	version := p.Version
	if version == "" {
		version = "dev"
	}

	return Environment{
		UserAgent:    fmt.Sprintf("trialgate/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH),
		Locale:       firstNonEmpty(getenv("LC_ALL"), getenv("LC_MESSAGES"), getenv("LANG"), "C"),
		ScreenWidth:  atoiOr(getenv("COLUMNS"), 80),
		ScreenHeight: atoiOr(getenv("LINES"), 24),
		Timezone:     firstNonEmpty(getenv("TZ"), time.Local.String()),
		Hostname:     hostname,
	}, nil
}

// StaticProvider returns a fixed environment.
type StaticProvider struct {
	Env Environment
}

// Collect returns the fixed environment.
func (p StaticProvider) Collect(ctx context.Context) (Environment, error) {
	return p.Env, nil
}

// FakeDeriver returns a predetermined fingerprint.
type FakeDeriver struct {
	Fingerprint string
	Err         error
}

// Derive returns the configured fingerprint or error.
func (d *FakeDeriver) Derive(ctx context.Context) (string, error) {
	if d.Err != nil {
		return "", d.Err
	}
	if d.Fingerprint == "" {
		return "fakefingerprint", nil
	}
	return d.Fingerprint, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
