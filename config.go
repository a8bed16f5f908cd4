package educhainChat

import (
	"errors"
	"fmt"
	"os"

	"github.com/educhainChat/chatStore"
	"github.com/educhainChat/firebaseChat"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "./config.yaml"

type Firebase struct {
	ProjectID       string `yaml:"projectId"`
	DatabaseURL     string `yaml:"databaseUrl"`
	StorageBucket   string `yaml:"storageBucket"`
	CredentialsFile string `yaml:"credentialsFile"`
}

type Chat struct {
	Collection string `yaml:"collection"` // chats
	PageSize   int    `yaml:"pageSize"`   // 50
	Reconnect  bool   `yaml:"reconnect"`  // false|true
}

type Logging struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

type Config struct {
	Firebase Firebase `yaml:"firebase"`
	Chat     Chat     `yaml:"chat"`
	Logging  Logging  `yaml:"logging"`
}

// LoadConfig reads the yaml file at CONFIG_PATH, then applies environment
// overrides. The default ./config.yaml may be absent.
func LoadConfig() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"FIREBASE_PROJECT_ID":            &c.Firebase.ProjectID,
		"FIREBASE_DATABASE_URL":          &c.Firebase.DatabaseURL,
		"FIREBASE_STORAGE_BUCKET":        &c.Firebase.StorageBucket,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.Firebase.CredentialsFile,
		"LOG_LEVEL":                      &c.Logging.Level,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func (c *Config) validate() error {
	if c.Firebase.ProjectID == "" {
		return errors.New("firebase.projectId is required")
	}
	if c.Chat.PageSize < 0 {
		return errors.New("chat.pageSize must not be negative")
	}

	if c.Chat.Collection == "" {
		c.Chat.Collection = firebaseChat.DefaultCollection
	}
	if c.Chat.PageSize == 0 {
		c.Chat.PageSize = chatStore.DefaultPageSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}
