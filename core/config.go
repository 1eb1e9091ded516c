package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
)

type Config struct {
	AppName      string
	Env          string // DEV (local; default), TEST, QA, PROD
	Build        string
	Debug        bool
	TestMode     bool
	SecretKey    string
	RollbarToken string

	FrontendBaseURL           string
	PasswordResetTimeoutDelta time.Duration

	SendgridApiKey   string
	defaultFromEmail string

	Server struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool

		SnapshotPath string
		SeedOnStart  bool
	}

	Scheduler struct {
		MonthlyReset string
		Snapshot     string
	}
}

// DatabaseAddress returns the "host:port" of the SQL database.
func (c Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

func (c Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment, after loading the `.env` files found in the
// working directory (`.env.<env>` then `.env`). Variables already set in the environment are never overridden.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	for _, path := range []string{".env." + strings.ToLower(env), ".env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				log.Fatalf("config.godotenv(%s): %v", path, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", path, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v, env)
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("app_name"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		SecretKey:        v.GetString("secret_key"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		defaultFromEmail: v.GetString("default_from_email"),

		FrontendBaseURL:           v.GetString("frontend_base_url"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
	}

	conf.Server.Host = v.GetString("server_host")
	conf.Server.DebugHost = v.GetString("server_debug_host")
	conf.Server.ReadTimeout = v.GetDuration("server_read_timeout")
	conf.Server.WriteTimeout = v.GetDuration("server_write_timeout")
	conf.Server.ShutdownTimeout = v.GetDuration("server_shutdown_timeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwt_expiration_delta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwt_refresh_expiration_delta")

	conf.Database.Engine = v.GetString("database_engine")
	conf.Database.Host = v.GetString("database_host")
	conf.Database.Port = v.GetString("database_port")
	conf.Database.Name = v.GetString("database_name")
	conf.Database.User = v.GetString("database_user")
	conf.Database.Password = v.GetString("database_password")
	conf.Database.AdminUser = v.GetString("database_admin_user")
	conf.Database.AdminPassword = v.GetString("database_admin_password")
	conf.Database.DisableTLS = v.GetBool("database_disable_tls")
	conf.Database.SnapshotPath = v.GetString("snapshot_path")
	conf.Database.SeedOnStart = v.GetBool("seed_on_start")

	conf.Scheduler.MonthlyReset = v.GetString("monthly_reset_schedule")
	conf.Scheduler.Snapshot = v.GetString("snapshot_schedule")

	if conf.TestMode {
		conf.Database.Engine = EngineMemory
		conf.Database.SnapshotPath = ""
	}
	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("app_name", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("default_from_email", "noreply@localhost")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)

	v.SetDefault("server_host", "0.0.0.0:8000")
	v.SetDefault("server_debug_host", "0.0.0.0:4000")
	v.SetDefault("server_read_timeout", 5*time.Second)
	v.SetDefault("server_write_timeout", 5*time.Second)
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("jwt_refresh_expiration_delta", 4*time.Hour)

	v.SetDefault("database_engine", EngineMemory)
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "masomo")
	v.SetDefault("database_user", "masomo")
	v.SetDefault("database_password", "")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", env == "DEV" || env == "TEST")
	v.SetDefault("snapshot_path", "masomo.db")
	v.SetDefault("seed_on_start", true)

	v.SetDefault("monthly_reset_schedule", "0 0 1 * *")
	v.SetDefault("snapshot_schedule", "@every 5m")
}

// NewTestConfig returns the configuration used by tests, independent of the environment.
func NewTestConfig() *Config {
	conf := &Config{
		AppName:          "Masomo",
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "test-secret",
		defaultFromEmail: "noreply@localhost",

		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = time.Hour
	conf.Server.ShutdownTimeout = time.Second
	conf.Database.Engine = EngineMemory
	return conf
}
