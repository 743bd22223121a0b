package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultMigrationLockKey identifies the cluster-wide schema-migration lock.
// Every replica must agree on this value for mutual exclusion to hold.
const DefaultMigrationLockKey int64 = 1835626337 // "mika"

type (
	DatabaseConfig struct {
		Engine        string `validate:"required"`
		Host          string `validate:"required"`
		Port          string `validate:"required"`
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string `validate:"required"`
		DisableTLS    bool
	}

	RedisConfig struct {
		URL string `validate:"required,uri"`
	}

	GateConfig struct {
		DatabaseMaxAttempts int `validate:"min=1"`
		CacheMaxAttempts    int `validate:"min=1"`
	}

	MigrationConfig struct {
		LockKey        int64
		PollInterval   time.Duration `validate:"gt=0"`
		AcquireTimeout time.Duration `validate:"gt=0"`
	}

	StaticConfig struct {
		Root    string `validate:"required"`
		Command string `validate:"required"`
	}

	SecretsConfig struct {
		TemplatePath string
		TargetPath   string
	}

	ServerConfig struct {
		Command    string `validate:"required"`
		Bind       string `validate:"required,hostname_port"`
		ConfigFile string
	}

	RealtimeConfig struct {
		Command     string `validate:"required"`
		Bind        string `validate:"required,hostname_port"`
		Compression bool
		MaxBodySize int64         `validate:"gt=0"`
		IdleTimeout time.Duration `validate:"gt=0"`
	}

	WorkerConfig struct {
		Command          string `validate:"required"`
		Concurrency      int    `validate:"min=1"`
		MaxTasksPerChild int    `validate:"min=1"`
		MaxMemPerChildKB int    `validate:"min=1"`
	}

	SchedulerConfig struct {
		Command      string `validate:"required"`
		ScheduleFile string `validate:"required"`
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		Build    string
		AppName  string
		WorkDir  string

		SecretKey        string `validate:"required"`
		SendgridAPIKey   string
		RollbarToken     string
		OpsEmail         string `validate:"omitempty,email"`
		DefaultFromEmail mail.Address

		Database  DatabaseConfig
		Redis     RedisConfig
		Gate      GateConfig
		Migration MigrationConfig
		Static    StaticConfig
		Secrets   SecretsConfig
		Server    ServerConfig
		Realtime  RealtimeConfig
		Worker    WorkerConfig
		Scheduler SchedulerConfig
	}
)

func (c DatabaseConfig) Address() string { return c.Host + ":" + c.Port }

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Mikan")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "mikan_db")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// the datastore ceiling is higher than the cache's: postgres recovery
	// after an unclean shutdown can take a while, redis is up near-instantly
	v.SetDefault("gate.databaseMaxAttempts", 60)
	v.SetDefault("gate.cacheMaxAttempts", 30)

	v.SetDefault("migration.lockKey", DefaultMigrationLockKey)
	v.SetDefault("migration.pollInterval", 2*time.Second)
	v.SetDefault("migration.acquireTimeout", 60*time.Second)

	v.SetDefault("static.root", "staticfiles")
	v.SetDefault("static.command", "mikan-api")

	v.SetDefault("server.command", "mikan-api")
	v.SetDefault("server.bind", "0.0.0.0:8000")
	v.SetDefault("server.configFile", "")

	v.SetDefault("realtime.command", "mikan-realtime")
	v.SetDefault("realtime.bind", "0.0.0.0:8001")
	v.SetDefault("realtime.compression", true)
	v.SetDefault("realtime.maxBodySize", int64(104857600)) // 100MB, matches the API upload cap
	v.SetDefault("realtime.idleTimeout", 300*time.Second)

	v.SetDefault("worker.command", "mikan-worker")
	v.SetDefault("worker.concurrency", 8)
	v.SetDefault("worker.maxTasksPerChild", 1000)
	v.SetDefault("worker.maxMemPerChildKB", 200000)

	v.SetDefault("scheduler.command", "mikan-scheduler")
	v.SetDefault("scheduler.scheduleFile", "/var/run/mikan/schedule.db")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}
	if wd := os.Getenv("WORK_DIR"); wd != "" {
		workDir = wd
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	// deployment env vars keep their historical (unprefixed) names
	bindings := map[string]string{
		"debug":                    "DEBUG",
		"build":                    "BUILD",
		"appName":                  "APP_NAME",
		"secretKey":                "SECRET_KEY",
		"sendgridAPIKey":           "SENDGRID_API_KEY",
		"rollbarToken":             "ROLLBAR_TOKEN",
		"opsEmail":                 "OPS_EMAIL",
		"defaultFromEmail":         "DEFAULT_FROM_EMAIL",
		"database.engine":          "DB_ENGINE",
		"database.host":            "DB_HOST",
		"database.port":            "DB_PORT",
		"database.user":            "DB_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.adminUser":       "DB_ADMIN_USER",
		"database.adminPassword":   "DB_ADMIN_PASSWORD",
		"database.name":            "DB_NAME",
		"database.disableTLS":      "DB_DISABLE_TLS",
		"redis.url":                "REDIS_URL",
		"gate.databaseMaxAttempts": "GATE_DB_MAX_ATTEMPTS",
		"gate.cacheMaxAttempts":    "GATE_CACHE_MAX_ATTEMPTS",
		"migration.lockKey":        "MIGRATION_LOCK_KEY",
		"static.root":              "STATIC_ROOT",
		"static.command":           "STATIC_COMMAND",
		"secrets.templatePath":     "SECRET_TEMPLATE",
		"secrets.targetPath":       "SECRET_TARGET",
		"server.command":           "SERVER_COMMAND",
		"server.bind":              "SERVER_BIND",
		"server.configFile":        "SERVER_CONFIG_FILE",
		"realtime.command":         "REALTIME_COMMAND",
		"realtime.bind":            "REALTIME_BIND",
		"worker.command":           "WORKER_COMMAND",
		"worker.concurrency":       "WORKER_CONCURRENCY",
		"scheduler.command":        "SCHEDULER_COMMAND",
		"scheduler.scheduleFile":   "SCHEDULE_FILE",
	}
	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, errors.Wrapf(err, "binding %s", envVar)
		}
	}

	conf := &Config{
		Env:            env,
		Debug:          v.GetBool("debug"),
		TestMode:       env == "TEST",
		Build:          v.GetString("build"),
		AppName:        v.GetString("appName"),
		WorkDir:        workDir,
		SecretKey:      v.GetString("secretKey"),
		SendgridAPIKey: v.GetString("sendgridAPIKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		OpsEmail:       v.GetString("opsEmail"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{URL: v.GetString("redis.url")},
		Gate: GateConfig{
			DatabaseMaxAttempts: v.GetInt("gate.databaseMaxAttempts"),
			CacheMaxAttempts:    v.GetInt("gate.cacheMaxAttempts"),
		},
		Migration: MigrationConfig{
			LockKey:        v.GetInt64("migration.lockKey"),
			PollInterval:   v.GetDuration("migration.pollInterval"),
			AcquireTimeout: v.GetDuration("migration.acquireTimeout"),
		},
		Static: StaticConfig{
			Root:    v.GetString("static.root"),
			Command: v.GetString("static.command"),
		},
		Secrets: SecretsConfig{
			TemplatePath: v.GetString("secrets.templatePath"),
			TargetPath:   v.GetString("secrets.targetPath"),
		},
		Server: ServerConfig{
			Command:    v.GetString("server.command"),
			Bind:       v.GetString("server.bind"),
			ConfigFile: v.GetString("server.configFile"),
		},
		Realtime: RealtimeConfig{
			Command:     v.GetString("realtime.command"),
			Bind:        v.GetString("realtime.bind"),
			Compression: v.GetBool("realtime.compression"),
			MaxBodySize: v.GetInt64("realtime.maxBodySize"),
			IdleTimeout: v.GetDuration("realtime.idleTimeout"),
		},
		Worker: WorkerConfig{
			Command:          v.GetString("worker.command"),
			Concurrency:      v.GetInt("worker.concurrency"),
			MaxTasksPerChild: v.GetInt("worker.maxTasksPerChild"),
			MaxMemPerChildKB: v.GetInt("worker.maxMemPerChildKB"),
		},
		Scheduler: SchedulerConfig{
			Command:      v.GetString("scheduler.command"),
			ScheduleFile: v.GetString("scheduler.scheduleFile"),
		},
	}

	if conf.SecretKey == "" && conf.Debug {
		// local runs get a throwaway key; PROD fails validation without one
		conf.SecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"
	}

	if err := validator.New().Struct(conf); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return conf, nil
}
