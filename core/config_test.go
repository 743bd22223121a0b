package core

import (
	"strings"
	"testing"
	"time"
)

func Test_NewConfig_defaults(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("WORK_DIR", t.TempDir()) // no dotenv files

	conf, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() unexpected error: %v", err)
	}

	if !conf.TestMode {
		t.Error("TestMode = false, want true for ENV=TEST")
	}
	if conf.Database.Address() != "localhost:5432" {
		t.Errorf("database address = %s, want localhost:5432", conf.Database.Address())
	}
	if conf.Gate.DatabaseMaxAttempts != 60 || conf.Gate.CacheMaxAttempts != 30 {
		t.Errorf("gate attempts = %d/%d, want 60/30", conf.Gate.DatabaseMaxAttempts, conf.Gate.CacheMaxAttempts)
	}
	if conf.Migration.LockKey != DefaultMigrationLockKey {
		t.Errorf("lock key = %d, want %d", conf.Migration.LockKey, DefaultMigrationLockKey)
	}
	if conf.Migration.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v, want 2s", conf.Migration.PollInterval)
	}
	if conf.Migration.AcquireTimeout != 60*time.Second {
		t.Errorf("acquire timeout = %v, want 60s", conf.Migration.AcquireTimeout)
	}
	if conf.Server.Bind != "0.0.0.0:8000" {
		t.Errorf("server bind = %s, want 0.0.0.0:8000", conf.Server.Bind)
	}
	if conf.SecretKey == "" {
		t.Error("debug config must carry a fallback secret key")
	}
}

func Test_NewConfig_envOverrides(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("POSTGRES_PASSWORD", "hunter2")
	t.Setenv("REDIS_URL", "redis://:s3cret@cache.internal:6379/1")
	t.Setenv("SECRET_KEY", "prod-grade-key")
	t.Setenv("GATE_DB_MAX_ATTEMPTS", "120")
	t.Setenv("STATIC_ROOT", "/srv/static")

	conf, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() unexpected error: %v", err)
	}

	if conf.Database.Address() != "db.internal:5433" {
		t.Errorf("database address = %s, want db.internal:5433", conf.Database.Address())
	}
	if conf.Database.Password != "hunter2" {
		t.Errorf("database password = %s, want hunter2", conf.Database.Password)
	}
	if conf.Redis.URL != "redis://:s3cret@cache.internal:6379/1" {
		t.Errorf("redis url = %s", conf.Redis.URL)
	}
	if conf.SecretKey != "prod-grade-key" {
		t.Errorf("secret key = %s, want prod-grade-key", conf.SecretKey)
	}
	if conf.Gate.DatabaseMaxAttempts != 120 {
		t.Errorf("database gate attempts = %d, want 120", conf.Gate.DatabaseMaxAttempts)
	}
	if conf.Static.Root != "/srv/static" {
		t.Errorf("static root = %s, want /srv/static", conf.Static.Root)
	}
}

func Test_NewConfig_invalidRedisURL(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("REDIS_URL", "not a url at all")

	if _, err := NewConfig(); err == nil {
		t.Fatal("NewConfig() expected validation error for malformed redis url")
	} else if !strings.Contains(err.Error(), "validating config") {
		t.Errorf("error = %v, want validation failure", err)
	}
}
