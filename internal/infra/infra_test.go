package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/crmreport/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// infra.go: Cache
// ════════════════════════════════════════════════════════════════════

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("top10_volume_30d", 42)

	v, ok := c.Get("top10_volume_30d")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(int) != 42 {
		t.Errorf("Get: got %v, want 42", v)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	now = now.Add(30 * time.Second)
	c.Set("b", "y")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("entry a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b should still be live")
	}
	if _, kept := c.entries["a"]; kept || len(c.entries) != 1 {
		t.Errorf("entries after expired Get: got %d, want 1", len(c.entries))
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be invalidated")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should survive invalidating a")
	}
}

// ════════════════════════════════════════════════════════════════════
// infra.go: RateLimiter
// ════════════════════════════════════════════════════════════════════

func TestRateLimiterConsumesTokens(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("third Wait should block until the context expires")
	}
}

func TestPerMinuteNilIsUnlimited(t *testing.T) {
	rl := PerMinute(0)
	if rl != nil {
		t.Fatal("PerMinute(0) should return nil")
	}
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("nil limiter Wait: %v", err)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// logger.go
// ════════════════════════════════════════════════════════════════════

func TestNewLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.LoggingConfig{Level: "WARN", Format: "json"}, &buf)

	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v, want warn", log.GetLevel())
	}
	log.Info("hidden")
	log.WithField("product", "top10").Warn("shown")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("json formatter output not JSON: %v (%q)", err, out)
	}
	if entry["product"] != "top10" {
		t.Errorf("product field: got %v", entry["product"])
	}
}

func TestNewLoggerBadLevelDefaultsInfo(t *testing.T) {
	log := newLogger(config.LoggingConfig{Level: "chatty"}, &bytes.Buffer{})
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level: got %v, want info", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter: got %T, want *logrus.TextFormatter", log.Formatter)
	}
}
