package config

import (
	"os"
	"time"
)

// ProviderKind selects which external provider implementations are wired in.
type ProviderKind string

const (
	ProviderMock ProviderKind = "mock"
	ProviderAWS  ProviderKind = "aws"
)

// Providers captures external provider configuration. It is passed explicitly
// at construction; there is no process-wide provider state.
type Providers struct {
	Kind    ProviderKind
	Region  string
	Timeout time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	TargetGender  string
	DatabaseURL   string
	Providers     Providers
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VERIFID_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("VERIFID_ENV")
	if env == "" {
		env = "dev"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	targetGender := os.Getenv("TARGET_GENDER")
	if targetGender == "" {
		targetGender = "female"
	}

	providerKind := ProviderKind(os.Getenv("PROVIDER"))
	if providerKind == "" {
		providerKind = ProviderMock
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	providerTimeout := 10 * time.Second
	if s := os.Getenv("PROVIDER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			providerTimeout = d
		}
	}

	return Server{
		Addr:          addr,
		Environment:   env,
		JWTSigningKey: jwtSigningKey,
		TargetGender:  targetGender,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Providers: Providers{
			Kind:    providerKind,
			Region:  region,
			Timeout: providerTimeout,
		},
	}
}
