package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything the game server needs to run. Values come from
// flags first, then ROOMTD_-prefixed environment variables, then defaults.
type Config struct {
	Bind        string
	Port        int
	DatabaseURL string
	TruthsFile  string
	DaresFile   string
	TLSCert     string
	TLSKey      string
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// BindFlags registers the server flags on fs and wires each one to its
// ROOMTD_ environment variable.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix("ROOMTD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: ROOMTD_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: ROOMTD_PORT)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres connection string; empty runs the in-memory store (env: ROOMTD_DATABASE_URL)")
	fs.StringVar(&c.TruthsFile, "truths", "", "path to a truths JSON file (env: ROOMTD_TRUTHS)")
	fs.StringVar(&c.DaresFile, "dares", "", "path to a dares JSON file (env: ROOMTD_DARES)")
	fs.StringVar(&c.TLSCert, "tls-cert", "", "path to tls certificate (env: ROOMTD_TLS_CERT)")
	fs.StringVar(&c.TLSKey, "tls-key", "", "path to tls keyfile (env: ROOMTD_TLS_KEY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
