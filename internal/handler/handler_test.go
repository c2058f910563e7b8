package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"buildline/config"
	"buildline/internal/models"
	"buildline/pkg/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Payment{}, &models.Request{}))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:   "test-secret",
			TokenExpiry: time.Hour,
			Issuer:      "buildline-test",
		},
		Checkout: config.CheckoutConfig{
			SecretKey:     "sk_test",
			WebhookSecret: "whsec_test",
			SuccessURL:    "https://example.com/ok",
			CancelURL:     "https://example.com/no",
			Currency:      "usd",
		},
		Chain: config.ChainConfig{
			ReceivingAddress: "RcvWa11etAddre55",
			TokenDecimals:    6,
		},
		Queue: config.QueueConfig{
			MaxRequestChars:   120,
			ThroughputPerHour: 2,
		},
	}
}

type fakeTracker struct {
	mu      sync.Mutex
	next    int
	created []tracker.Issue
	listed  []tracker.Issue
	failing bool
}

func (f *fakeTracker) CreateIssue(ctx context.Context, title, body string, labels []string) (*tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("tracker unavailable")
	}
	f.next++
	issue := tracker.Issue{Number: f.next, Title: title, URL: "https://example.com/issues/1", Labels: labels}
	f.created = append(f.created, issue)
	return &issue, nil
}

func (f *fakeTracker) ListIssues(ctx context.Context, state string) ([]tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("tracker unavailable")
	}
	return f.listed, nil
}

func (f *fakeTracker) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
