package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	// Bind is the listen address. Defaults to loopback; birthday data is
	// household data, exposing it wider is an explicit choice.
	Bind string `yaml:"bind"`
	Port string `yaml:"port"`
}

// StorageSettings selects and configures the persistence backend.
type StorageSettings struct {
	// Driver is "file" (JSON) or "sqlite".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// NotificationSettings holds the runtime options: when the daily check fires
// and which reminder offsets apply to records without their own list.
type NotificationSettings struct {
	// Time is the daily trigger wall-clock time, "HH:MM" (24h).
	Time string `yaml:"time"`
	// DefaultReminderDays is a comma-separated list of non-negative
	// day offsets, e.g. "7,1,0".
	DefaultReminderDays string `yaml:"default_reminder_days"`
	// Language selects the message locale for reminder texts and
	// calendar summaries.
	Language string `yaml:"language"`
}

// TelegramSettings configures the optional Telegram reminder sink.
type TelegramSettings struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// ImportSettings configures the optional vCard import source.
// The web password is not stored here; it is looked up from the system
// keyring under KeyringService with WebUser as the account.
type ImportSettings struct {
	// Mode is "" (disabled), "local" or "web".
	Mode      string `yaml:"mode"`
	LocalPath string `yaml:"local_path"`
	WebURL    string `yaml:"web_url"`
	WebUser   string `yaml:"web_user"`
}

// Settings is the top-level application configuration, loaded from YAML.
type Settings struct {
	Server        ServerSettings       `yaml:"server"`
	Storage       StorageSettings      `yaml:"storage"`
	Notifications NotificationSettings `yaml:"notifications"`
	Telegram      TelegramSettings     `yaml:"telegram"`
	Import        ImportSettings       `yaml:"import"`
}

// DefaultSettings returns the in-memory defaults applied when the settings
// file is absent or partially filled.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Bind: LocalhostBindAddr,
			Port: DefaultPort,
		},
		Storage: StorageSettings{
			Driver: DefaultStorageDriver,
			Path:   DefaultStoragePath,
		},
		Notifications: NotificationSettings{
			Time:                DefaultNotificationTime,
			DefaultReminderDays: DefaultReminderDaysCSV,
			Language:            DefaultLanguage,
		},
	}
}

// LoadSettings reads, normalizes and validates the settings file.
// A missing file yields the defaults rather than an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrSettingsLoad, err)
	}

	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsLoad, err)
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Normalize fills in missing values so partially filled files still behave.
func (s *Settings) Normalize() {
	if strings.TrimSpace(s.Server.Bind) == "" {
		s.Server.Bind = LocalhostBindAddr
	}
	if strings.TrimSpace(s.Server.Port) == "" {
		s.Server.Port = DefaultPort
	}
	if strings.TrimSpace(s.Storage.Driver) == "" {
		s.Storage.Driver = DefaultStorageDriver
	}
	if strings.TrimSpace(s.Storage.Path) == "" {
		s.Storage.Path = DefaultStoragePath
	}
	if strings.TrimSpace(s.Notifications.Time) == "" {
		s.Notifications.Time = DefaultNotificationTime
	}
	if strings.TrimSpace(s.Notifications.DefaultReminderDays) == "" {
		s.Notifications.DefaultReminderDays = DefaultReminderDaysCSV
	}
	if strings.TrimSpace(s.Notifications.Language) == "" {
		s.Notifications.Language = DefaultLanguage
	}
}

// Validate checks the whole settings value. It never mutates.
func (s *Settings) Validate() error {
	if err := validatePort(s.Server.Port); err != nil {
		return err
	}
	switch s.Storage.Driver {
	case StorageDriverFile, StorageDriverSQLite:
	default:
		return fmt.Errorf("%s: %q", ErrStorageDriver, s.Storage.Driver)
	}
	if strings.TrimSpace(s.Storage.Path) == "" {
		return errors.New(ErrStoragePath)
	}
	if _, _, err := ParseNotificationTime(s.Notifications.Time); err != nil {
		return err
	}
	if _, err := ParseReminderDays(s.Notifications.DefaultReminderDays); err != nil {
		return err
	}
	if s.Telegram.Enabled {
		if strings.TrimSpace(s.Telegram.Token) == "" {
			return errors.New(ErrTelegramToken)
		}
		if s.Telegram.ChatID == 0 {
			return errors.New(ErrTelegramChat)
		}
	}
	switch s.Import.Mode {
	case "", ImportModeLocal, ImportModeWeb:
	default:
		return fmt.Errorf("%s: %q", ErrImportMode, s.Import.Mode)
	}
	return nil
}

func validatePort(port string) error {
	if strings.TrimSpace(port) == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// ParseNotificationTime parses "HH:MM" (24h) into hour and minute.
func ParseNotificationTime(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%s: %q", ErrOptionsTime, value)
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%s: %q", ErrOptionsTime, value)
	}
	return hour, minute, nil
}

// ParseReminderDays parses "7,1,0" into a deduplicated list sorted
// descending. The descending order is display convention only; reminders
// fire independently per offset.
func ParseReminderDays(value string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %q", ErrOptionsDays, value)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s: %q", ErrOptionsDays, value)
		}
		if !slices.Contains(days, n) {
			days = append(days, n)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%s: %q", ErrOptionsDays, value)
	}
	slices.SortFunc(days, func(a, b int) int { return b - a })
	return days, nil
}

// FormatReminderDays renders a reminder offset list back to its
// comma-separated form.
func FormatReminderDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}
