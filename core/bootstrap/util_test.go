package bootstrap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikanhq/launcher/core"
)

// testLogger records every line so tests can assert on warnings.
type testLogger struct {
	mu      sync.Mutex
	entries []string
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+": "+msg)
}

func (l *testLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg) }
func (l *testLogger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg) }

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func testConfig() *core.Config {
	conf := &core.Config{
		Env:     "TEST",
		Debug:   true,
		Build:   "test",
		AppName: "Mikan",
	}
	conf.Migration = core.MigrationConfig{
		LockKey:        core.DefaultMigrationLockKey,
		PollInterval:   2 * time.Second,
		AcquireTimeout: 60 * time.Second,
	}
	conf.Static = core.StaticConfig{Root: "staticfiles", Command: "mikan-api"}
	conf.Server = core.ServerConfig{Command: "mikan-api", Bind: "0.0.0.0:8000"}
	conf.Realtime = core.RealtimeConfig{
		Command:     "mikan-realtime",
		Bind:        "0.0.0.0:8001",
		Compression: true,
		MaxBodySize: 104857600,
		IdleTimeout: 300 * time.Second,
	}
	conf.Worker = core.WorkerConfig{
		Command:          "mikan-worker",
		Concurrency:      8,
		MaxTasksPerChild: 1000,
		MaxMemPerChildKB: 200000,
	}
	conf.Scheduler = core.SchedulerConfig{
		Command:      "mikan-scheduler",
		ScheduleFile: "/var/run/mikan/schedule.db",
	}
	return conf
}

// fakeClock drives nowFunc and waitFunc together so polling loops advance
// virtual time instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) String() string {
	return fmt.Sprintf("fakeClock(%s)", c.Now())
}
