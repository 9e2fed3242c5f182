package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const (
	DEFAULT_MERCHANT_NAME = "BRPAY MERCHANT"
	DEFAULT_MERCHANT_CITY = "SAO PAULO"
)

func IsSandbox() bool {
	env := os.Getenv("APP_ENV")
	return env == "sandbox" || env == "test" || env == "local"
}

func OperationMode() string {
	mode := os.Getenv("OPERATION_MODE")
	if mode == "" {
		return "white"
	}
	return mode
}

func PixKey() string {
	return os.Getenv("PIX_KEY")
}

// MerchantName falls back to a fixed default instead of producing an invalid
// BR Code payload. The fallback is a configuration problem, not a request error.
func MerchantName() string {
	name := os.Getenv("PIX_MERCHANT_NAME")
	if name == "" {
		log.Printf("[config] PIX_MERCHANT_NAME not set, using default %q\n", DEFAULT_MERCHANT_NAME)
		return DEFAULT_MERCHANT_NAME
	}
	return name
}

func MerchantCity() string {
	city := os.Getenv("PIX_MERCHANT_CITY")
	if city == "" {
		log.Printf("[config] PIX_MERCHANT_CITY not set, using default %q\n", DEFAULT_MERCHANT_CITY)
		return DEFAULT_MERCHANT_CITY
	}
	return city
}

func DefaultCardProvider() string {
	p := os.Getenv("DEFAULT_CARD_PROVIDER")
	if p == "" {
		return "stripe"
	}
	return p
}

// HostedCheckoutTags is the fixed allow-list of merchants that always route to
// the hosted-checkout adapter, in every environment including sandbox.
func HostedCheckoutTags() []string {
	raw := os.Getenv("HOSTED_CHECKOUT_TAGS")
	if raw == "" {
		return nil
	}
	tags := strings.Split(raw, ",")
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func WebhookSecret(provider string) string {
	key := "WEBHOOK_SECRET_" + strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
	return os.Getenv(key)
}

func WebhookToleranceSeconds() int {
	raw := os.Getenv("WEBHOOK_TOLERANCE_SECONDS")
	if raw == "" {
		return 300
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 300
	}
	return n
}

func WebhookRequireTimestamp() bool {
	b, _ := strconv.ParseBool(os.Getenv("WEBHOOK_REQUIRE_TIMESTAMP"))
	return b
}

func WebhookDedupeByDeliveryID() bool {
	b, _ := strconv.ParseBool(os.Getenv("WEBHOOK_DEDUPE_BY_DELIVERY_ID"))
	return b
}

func ProviderTimeout() time.Duration {
	raw := os.Getenv("PROVIDER_TIMEOUT_SECONDS")
	if raw == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func PixExpiry() time.Duration {
	raw := os.Getenv("PIX_EXPIRY_MINUTES")
	if raw == "" {
		return 60 * time.Minute
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(n) * time.Minute
}
