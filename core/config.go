package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Storage engines
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type (
	DatabaseConfig struct {
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

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second, per client
		RateBurst                 int
		CORSOrigins               []string
	}

	RegistryConfig struct {
		AutoApprovalThreshold int
		MinPassingGrade       int
		MaxCreditsPerSemester int
	}

	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		DefaultFromEmail          mail.Address
		Storage                   string
		RollbarToken              string
		SendgridApiKey            string
		RedisAddress              string
		KafkaBrokers              []string
		KafkaTopic                string

		Database DatabaseConfig
		Server   ServerConfig
		Registry RegistryConfig
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// NewConfig reads the configuration of the current ENV (DEV by default) from the environment
// and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return fromViper(env, v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "AcademicToken")
	v.SetDefault("secretKey", "k2v8-q0e)n1b$+93=rz&uo7h4(x!c)#*d2(#wg6h^$cegm1tzq")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("defaultFromEmail", "AcademicToken <noreply@localhost>")
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("redisAddress", "")
	v.SetDefault("kafkaBrokers", "")
	v.SetDefault("kafkaTopic", "academictoken.blocks")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academictoken")
	v.SetDefault("database.user", "academictoken")
	v.SetDefault("database.password", "academictoken")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.rateLimit", 20.0)
	v.SetDefault("server.rateBurst", 40)
	v.SetDefault("server.corsOrigins", "*")

	v.SetDefault("registry.autoApprovalThreshold", 85)
	v.SetDefault("registry.minPassingGrade", 60)
	v.SetDefault("registry.maxCreditsPerSemester", 30)
}

func fromViper(env string, v *viper.Viper) *Config {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		from = &mail.Address{Address: v.GetString("defaultFromEmail")}
	}
	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		DefaultFromEmail:          *from,
		Storage:                   strings.ToLower(v.GetString("storage")),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RedisAddress:              v.GetString("redisAddress"),
		KafkaBrokers:              splitList(v.GetString("kafkaBrokers")),
		KafkaTopic:                v.GetString("kafkaTopic"),
		Database: DatabaseConfig{
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
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("server.rateLimit"),
			RateBurst:                 v.GetInt("server.rateBurst"),
			CORSOrigins:               splitList(v.GetString("server.corsOrigins")),
		},
		Registry: RegistryConfig{
			AutoApprovalThreshold: v.GetInt("registry.autoApprovalThreshold"),
			MinPassingGrade:       v.GetInt("registry.minPassingGrade"),
			MaxCreditsPerSemester: v.GetInt("registry.maxCreditsPerSemester"),
		},
	}
}

// NewTestConfig returns the defaults with test mode on, without reading the environment.
func NewTestConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("debug", false)
	return fromViper("TEST", v)
}

// Validate reports configuration values the application cannot start with.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return errors.New(fmt.Sprintf("unknown storage engine %q", c.Storage))
	}
	if c.Env == "PROD" && (c.SecretKey == "" || c.Debug) {
		return errors.New("PROD requires a secret key and debug off")
	}
	if c.Registry.AutoApprovalThreshold < 0 || c.Registry.AutoApprovalThreshold > 100 {
		return errors.New("registry.autoApprovalThreshold must be within 0..100")
	}
	if c.Registry.MinPassingGrade < 0 || c.Registry.MinPassingGrade > 100 {
		return errors.New("registry.minPassingGrade must be within 0..100")
	}
	return nil
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
