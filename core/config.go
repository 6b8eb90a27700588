package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string

		Server        serverConfig
		Database      databaseConfig
		Redis         redisConfig
		Notifications notificationConfig
		Scheduler     schedulerConfig
	}

	serverConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		SecretKey          string
		JWTExpirationDelta time.Duration
	}

	databaseConfig struct {
		Driver        string // postgres | memory
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
		QueueKey string
		DedupTTL time.Duration
	}

	notificationConfig struct {
		Timeout          time.Duration
		UseQueue         bool
		Dedup            bool
		DefaultFromEmail string
		SendgridAPIKey   string
		TwilioAccountSID string
		TwilioAuthToken  string
		TwilioFromNumber string
	}

	schedulerConfig struct {
		MonthlyAbsenceSpec string
		MonthlyAbsenceAsOf string // "fire" (month of the run) or "previous_day"
		Timezone           string
	}
)

func (c databaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c notificationConfig) FromAddress() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Address: c.DefaultFromEmail}
	}
	return *addr
}

// Location returns the timezone used to compute calendar windows; UTC when unset or unknown.
func (c schedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Server: serverConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			SecretKey:          v.GetString("server.secretKey"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: databaseConfig{
			Driver:        v.GetString("database.driver"),
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			QueueKey: v.GetString("redis.queueKey"),
			DedupTTL: v.GetDuration("redis.dedupTTL"),
		},
		Notifications: notificationConfig{
			Timeout:          v.GetDuration("notifications.timeout"),
			UseQueue:         v.GetBool("notifications.useQueue"),
			Dedup:            v.GetBool("notifications.dedup"),
			DefaultFromEmail: v.GetString("notifications.defaultFromEmail"),
			SendgridAPIKey:   v.GetString("notifications.sendgridApiKey"),
			TwilioAccountSID: v.GetString("notifications.twilioAccountSid"),
			TwilioAuthToken:  v.GetString("notifications.twilioAuthToken"),
			TwilioFromNumber: v.GetString("notifications.twilioFromNumber"),
		},
		Scheduler: schedulerConfig{
			MonthlyAbsenceSpec: v.GetString("scheduler.monthlyAbsenceSpec"),
			MonthlyAbsenceAsOf: v.GetString("scheduler.monthlyAbsenceAsOf"),
			Timezone:           v.GetString("scheduler.timezone"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shule")
	v.SetDefault("build", "develop")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.secretKey", "s3cr3t-k3y-f0r-l0cal-d3v3l0pm3nt-0nly")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.user", "shule")
	v.SetDefault("database.password", "shule")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.queueKey", "shule:notifications")
	v.SetDefault("redis.dedupTTL", 48*time.Hour)

	v.SetDefault("notifications.timeout", 10*time.Second)
	v.SetDefault("notifications.defaultFromEmail", "School <noreply@localhost>")

	v.SetDefault("scheduler.monthlyAbsenceSpec", "@monthly")
	v.SetDefault("scheduler.monthlyAbsenceAsOf", "fire")
	v.SetDefault("scheduler.timezone", "UTC")
}

func (c *Config) String() string {
	return fmt.Sprintf("%s [%s] build=%s", c.AppName, c.Env, c.Build)
}
