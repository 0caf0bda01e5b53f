package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/tlsutil"
)

const EnvPrefix = "RR"

type AppConfig struct {
	v *viper.Viper
}

func NewAppConfig() *AppConfig {
	c := &AppConfig{v: viper.New()}

	setDefaults(c.v)

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	return c
}

// Load reads the first existing config file of filename.
func (c *AppConfig) Load(filename ...string) bool {
	for _, name := range filename {
		if name == "" {
			continue
		}

		c.v.SetConfigFile(name)

		if err := c.v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				slog.Info(fmt.Sprintf("error loading config: %s", err.Error()))
			}

			continue
		}

		return true
	}

	return false
}

func (c *AppConfig) Bool(key string) bool {
	return c.v.GetBool(key)
}

func (c *AppConfig) String(key string) string {
	return c.v.GetString(key)
}

func (c *AppConfig) FirstString(key ...string) string {
	for _, k := range key {
		if s := c.v.GetString(k); s != "" {
			return s
		}
	}

	return ""
}

func (c *AppConfig) Int(key string) int {
	return c.v.GetInt(key)
}

func (c *AppConfig) Set(key string, v any) {
	c.v.Set(key, v)
}

func (c *AppConfig) APIAddr() string {
	return c.v.GetString("api_addr")
}

func (c *AppConfig) DB() string {
	return c.v.GetString("db")
}

func (c *AppConfig) UsersFile() string {
	return c.v.GetString("users_file")
}

func (c *AppConfig) Debug() bool {
	return c.v.GetBool("debug")
}

func (c *AppConfig) OrgName() string {
	return c.v.GetString("org_name")
}

func (c *AppConfig) Server() string {
	return strings.TrimSuffix(c.v.GetString("server"), "/")
}

func (c *AppConfig) Login() string {
	return c.v.GetString("login")
}

func (c *AppConfig) Password() string {
	return c.v.GetString("password")
}

func (c *AppConfig) Timeout() time.Duration {
	return c.v.GetDuration("timeout")
}

// TimeFormat is eta.Format24h or eta.Format12h.
func (c *AppConfig) TimeFormat() string {
	if c.v.GetString("time_format") == eta.Format12h {
		return eta.Format12h
	}

	return eta.Format24h
}

func (c *AppConfig) CalTopo() caltopo.Config {
	return caltopo.Config{
		URL:        c.v.GetString("caltopo.url"),
		CredID:     c.v.GetString("caltopo.cred_id"),
		CredSecret: c.v.GetString("caltopo.cred_secret"),
		TeamID:     c.v.GetString("caltopo.team_id"),
		TemplateID: c.v.GetString("caltopo.template_map_id"),
	}
}

func (c *AppConfig) MapRatePerMinute() int {
	return c.v.GetInt("caltopo.rate_per_minute")
}

func (c *AppConfig) TLSConfig() (*tls.Config, error) {
	return tlsutil.ClientConfig(c.v.GetString("ssl.cert"), c.v.GetString("ssl.password"), c.v.GetBool("ssl.strict"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_addr", ":8080")
	v.SetDefault("db", "db.sqlite")
	v.SetDefault("users_file", "users.yml")
	v.SetDefault("debug", false)
	v.SetDefault("org_name", "Rescue Respond")

	v.SetDefault("caltopo.url", caltopo.DefaultURL)
	v.SetDefault("caltopo.rate_per_minute", 5)

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("timeout", time.Second*15)
	v.SetDefault("time_format", eta.Format24h)
	v.SetDefault("ssl.strict", false)
}
