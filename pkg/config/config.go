package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Gateway is the edge configuration shared by the api-gateway binary and its tests.
type Gateway struct {
	HTTPAddr string `envconfig:"GATEWAY_HTTP_ADDR" default:":8080"`

	// Downstream services
	AuthURL     string `envconfig:"AUTH_SERVICE_URL" default:"http://auth-service:8081"`
	BookingURL  string `envconfig:"BOOKING_SERVICE_URL" default:"http://booking-service:8082"`
	PaymentURL  string `envconfig:"PAYMENT_SERVICE_URL" default:"http://payment-service:8083"`
	FacilityURL string `envconfig:"FACILITY_SERVICE_URL" default:"http://facility-service:8084"`

	DownstreamTimeout time.Duration `envconfig:"DOWNSTREAM_TIMEOUT" default:"10s"`

	// Auth gate
	PublicPaths []string `envconfig:"PUBLIC_PATHS" default:"/api/auth/register,/api/auth/login,/api/auth/refresh_token,/api/auth/logout"`
	AuthStrict  bool     `envconfig:"AUTH_STRICT" default:"false"`
}

// Load reads an optional .env file and then fills cfg from the environment.
func Load(cfg any) error {
	_ = godotenv.Load(".env")
	return envconfig.Process("", cfg)
}
