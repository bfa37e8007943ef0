package repository

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"
)

// ErrInvalidKey is returned for configuration keys not of the form
// section.name.
var ErrInvalidKey = errors.New("invalid config key")

// ErrKeyNotFound is returned by Get for keys without a value.
var ErrKeyNotFound = errors.New("config key not found")

// Settings is the repository configuration stored in .bit/config.
type Settings struct {
	ID                 string
	Created            time.Time
	IgnoreCreationTime bool
	Ignore             []string
}

// NewSettings returns settings for a fresh repository.
func NewSettings() Settings {
	return Settings{
		ID:      newID(),
		Created: time.Now().UTC().Truncate(time.Second),
	}
}

// newID returns 32 lowercase hex digits.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s Settings) marshal() ([]byte, error) {
	cfg := ini.Empty()

	core := cfg.Section("core")
	core.Key("repositoryid").SetValue(s.ID)
	core.Key("created").SetValue(s.Created.Format(time.RFC3339))

	cfg.Section("status").Key("ignorecreationtime").SetValue(fmt.Sprint(s.IgnoreCreationTime))
	cfg.Section("ignore").Key("patterns").SetValue(strings.Join(s.Ignore, ","))

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseSettings(data []byte) (*ini.File, Settings, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, Settings{}, err
	}
	s, err := settingsFrom(cfg)
	return cfg, s, err
}

func settingsFrom(cfg *ini.File) (Settings, error) {
	var s Settings

	core := cfg.Section("core")
	s.ID = core.Key("repositoryid").String()

	if raw := core.Key("created").String(); raw != "" {
		created, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Settings{}, fmt.Errorf("core.created: %w", err)
		}
		s.Created = created
	}

	if key := cfg.Section("status").Key("ignorecreationtime"); key.String() != "" {
		v, err := key.Bool()
		if err != nil {
			return Settings{}, fmt.Errorf("status.ignorecreationtime: %w", err)
		}
		s.IgnoreCreationTime = v
	}

	for _, p := range cfg.Section("ignore").Key("patterns").Strings(",") {
		if p != "" {
			s.Ignore = append(s.Ignore, p)
		}
	}
	return s, nil
}

func splitKey(key string) (section, name string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return parts[0], parts[1], nil
}
