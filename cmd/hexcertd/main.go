package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/team-hex/hexcert/adapters/events"
	"github.com/team-hex/hexcert/adapters/store"
	"github.com/team-hex/hexcert/adapters/tokenizer"
	"github.com/team-hex/hexcert/contract"
	"github.com/team-hex/hexcert/service"
	"github.com/team-hex/hexcert/transport/http"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	signKey, err := loadSignKey()
	if err != nil {
		logger.WithError(err).Fatal("failed to load signing key")
	}

	redisURL := envOr("REDIS_URL", "redis://localhost:6379/0")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse Redis URL")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to create Redis publisher")
	}
	eventPub := events.NewWatermillPublisher(publisher)

	adminAddress := os.Getenv("ADMIN_ADDRESS")
	if !common.IsHexAddress(adminAddress) {
		logger.Fatal("ADMIN_ADDRESS must be set to the initial admin wallet address")
	}
	baseURI := envOr("CERT_BASE_URI", "https://web3con-team-hex.s3.filebase.com/")

	factory, err := contract.NewCertificateFactory(
		context.Background(),
		baseURI,
		common.HexToAddress(adminAddress),
		store.NewRedisStateStore(redisClient),
		eventPub,
		logger,
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize certificate factory")
	}

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewRedisRevocationStore(redisClient),
		store.NewRedisNonceStore(redisClient),
		store.NewRedisUserStore(redisClient),
		eventPub,
		logger,
	)

	router := http.SetupRouter(authService, factory)

	addr := ":" + envOr("PORT", "9000")
	logger.WithField("addr", addr).Info("starting hexcertd")
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadSignKey reads the session-token signing key from SESSION_SIGN_KEY
// (hex-encoded P-256 scalar in SEC1 form). Without one, an ephemeral key is
// generated; sessions then do not survive a restart.
func loadSignKey() (*ecdsa.PrivateKey, error) {
	raw := os.Getenv("SESSION_SIGN_KEY")
	if raw == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	der, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return x509.ParseECPrivateKey(der)
}
