package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Astemirdum/school-library/pkg/auth"
	"github.com/Astemirdum/school-library/pkg/kafka"
	"github.com/Astemirdum/school-library/pkg/logger"
	"github.com/Astemirdum/school-library/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Config struct {
	Server   HTTPServer  `yaml:"server"`
	Database postgres.DB `yaml:"db"`
	Kafka    kafka.Config
	Auth     auth.Config
	Log      logger.Log `yaml:"log"`
}

var (
	once   sync.Once
	cfg    Config
	cfgErr error
)

// NewConfig reads config from environment. Options set values that the
// environment may still override.
func NewConfig(ops ...Option) (*Config, error) {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			cfgErr = errors.Wrap(err, "envconfig.Process")
			return
		}
		cfg = config
	})
	if cfgErr != nil {
		return nil, cfgErr
	}
	c := cfg
	return &c, nil
}

func (c *Config) Print() {
	jscfg, _ := json.MarshalIndent(c, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
