package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/engine"
	"github.com/shaiso/permitflow/internal/mq"
	"github.com/shaiso/permitflow/internal/texts"
	"github.com/shaiso/permitflow/internal/worker"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "PERMITFLOW"

// EnvConfigFile — переменная с путём к YAML-файлу.
const EnvConfigFile = EnvPrefix + "_CONFIG"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config — полная конфигурация.
type Config struct {
	// MunicipalityID и Namespace — контекст дела, если его нет в переменных задачи.
	MunicipalityID string `mapstructure:"municipalityId" yaml:"municipalityId"`
	Namespace      string `mapstructure:"namespace" yaml:"namespace"`

	// SupportNamespace — namespace support-management для служебных дел.
	SupportNamespace string `mapstructure:"supportNamespace" yaml:"supportNamespace"`

	// LockExtension — продление lock перед долгими задачами (0 — не продлевать).
	LockExtension time.Duration `mapstructure:"lockExtension" yaml:"lockExtension"`

	Engine       Engine              `mapstructure:"engine" yaml:"engine"`
	Integrations Integrations        `mapstructure:"integrations" yaml:"integrations"`
	Texts        texts.Config        `mapstructure:"texts" yaml:"texts,omitempty"`
	RPA          RPA                 `mapstructure:"rpa" yaml:"rpa"`
	Duplicates   map[string][]string `mapstructure:"duplicates" yaml:"duplicates"`
	Database     Database            `mapstructure:"database" yaml:"database"`
	RabbitMQ     mq.ConnectionConfig `mapstructure:"rabbitmq" yaml:"rabbitmq"`
	Journal      Journal             `mapstructure:"journal" yaml:"journal"`
	HTTP         HTTP                `mapstructure:"http" yaml:"http"`
	Log          Log                 `mapstructure:"log" yaml:"log"`
}

// Engine — подключение к workflow engine и backoff опроса.
type Engine struct {
	engine.Config `mapstructure:",squash" yaml:",inline"`

	Backoff worker.Backoff `mapstructure:"backoff" yaml:"backoff"`

	// DrainTimeout — ожидание текущих задач при остановке.
	DrainTimeout time.Duration `mapstructure:"drainTimeout" yaml:"drainTimeout"`
}

// Integrations — настройки REST-клиентов по системам.
type Integrations struct {
	CaseData          client.Config `mapstructure:"caseData" yaml:"caseData"`
	Citizen           client.Config `mapstructure:"citizen" yaml:"citizen"`
	BusinessRules     client.Config `mapstructure:"businessRules" yaml:"businessRules"`
	Messaging         client.Config `mapstructure:"messaging" yaml:"messaging"`
	Templating        client.Config `mapstructure:"templating" yaml:"templating"`
	SupportManagement client.Config `mapstructure:"supportManagement" yaml:"supportManagement"`
	PartyAssets       client.Config `mapstructure:"partyAssets" yaml:"partyAssets"`
	RPA               client.Config `mapstructure:"rpa" yaml:"rpa"`
}

// RPA — очереди роботов по типу дела.
type RPA struct {
	Queues map[string][]string `mapstructure:"queues" yaml:"queues"`
}

// Database — PostgreSQL для журнала эффектов. Пустой URL — журнал в памяти.
type Database struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// Journal — хранение журнала эффектов.
type Journal struct {
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
	SweepCron string        `mapstructure:"sweepCron" yaml:"sweepCron"`
}

// HTTP — служебный сервер (/healthz, /metrics).
type HTTP struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// Log — уровень и формат логов.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load читает конфигурацию. path пустой — берётся из PERMITFLOW_CONFIG;
// если и он пуст, используются значения по умолчанию и окружение.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultsYAML)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		if err := checkKnownKeys(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkKnownKeys декодирует файл строго, чтобы опечатка в ключе не
// превращалась в значение по умолчанию.
func checkKnownKeys(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// normalize исправляет регистр ключей map: viper приводит их к нижнему.
func (c *Config) normalize() {
	queues := make(map[string][]string, len(c.RPA.Queues))
	for caseType, names := range c.RPA.Queues {
		queues[strings.ToUpper(caseType)] = names
	}
	c.RPA.Queues = queues

	if c.Engine.WorkerID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "local"
		}
		c.Engine.WorkerID = "permitflow-" + host
	}
}

// Validate проверяет значения.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.MunicipalityID == "" {
		add("municipalityId is required")
	}
	if c.Namespace == "" {
		add("namespace is required")
	}
	if c.Engine.BaseURL == "" {
		add("engine.url is required")
	}
	if c.Engine.LockDuration <= 0 {
		add("engine.lockDuration must be positive")
	}
	if c.Engine.MaxTasks <= 0 {
		add("engine.maxTasks must be positive")
	}
	if c.Engine.DrainTimeout < 0 {
		add("engine.drainTimeout must not be negative")
	}
	if b := c.Engine.Backoff; b.Factor != 0 && b.Factor < 1 {
		add("engine.backoff.factor must be >= 1, got %v", b.Factor)
	}
	for caseType, names := range c.RPA.Queues {
		if len(names) == 0 {
			add("rpa.queues.%s is empty", caseType)
		}
	}
	if c.Journal.SweepCron != "" {
		if _, err := cron.ParseStandard(c.Journal.SweepCron); err != nil {
			add("journal.sweepCron: %v", err)
		}
	}
	if err := c.Texts.Validate(); err != nil {
		add("texts: %v", err)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		add("http.port out of range: %d", c.HTTP.Port)
	}
	return errors.Join(errs...)
}

// YAML возвращает итоговую конфигурацию в YAML (секреты скрыты).
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	redacted.Engine.Token = mask(c.Engine.Token)
	redacted.Integrations = c.Integrations.redacted()
	redacted.Database.URL = mask(c.Database.URL)
	redacted.RabbitMQ.URL = mask(c.RabbitMQ.URL)
	return yaml.Marshal(&redacted)
}

func (i Integrations) redacted() Integrations {
	for _, cfg := range []*client.Config{
		&i.CaseData, &i.Citizen, &i.BusinessRules, &i.Messaging,
		&i.Templating, &i.SupportManagement, &i.PartyAssets, &i.RPA,
	} {
		cfg.Token = mask(cfg.Token)
	}
	return i
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
