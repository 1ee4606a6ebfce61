package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"Default noon", "12:00", 12, 0, false},
		{"Early morning", "08:30", 8, 30, false},
		{"Midnight", "00:00", 0, 0, false},
		{"End of day", "23:59", 23, 59, false},
		{"Hour out of range", "24:00", 0, 0, true},
		{"Minute out of range", "12:60", 0, 0, true},
		{"Negative hour", "-1:00", 0, 0, true},
		{"Missing colon", "1200", 0, 0, true},
		{"Garbage", "noon", 0, 0, true},
		{"Empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, err := ParseNotificationTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestParseReminderDays(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{"Default list", "7,1,0", []int{7, 1, 0}, false},
		{"Unsorted input", "0,7,1", []int{7, 1, 0}, false},
		{"Duplicates collapse", "7,7,1,1,0", []int{7, 1, 0}, false},
		{"Whitespace tolerated", " 7 , 1 , 0 ", []int{7, 1, 0}, false},
		{"Single value", "3", []int{3}, false},
		{"Negative offset", "7,-1", nil, true},
		{"Non-numeric", "7,abc", nil, true},
		{"Empty", "", nil, true},
		{"Only commas", ",,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReminderDays(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatReminderDays(t *testing.T) {
	assert.Equal(t, "7,1,0", FormatReminderDays([]int{7, 1, 0}))
	assert.Equal(t, "", FormatReminderDays(nil))
}

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err, "A missing settings file falls back to defaults")

	assert.Equal(t, DefaultPort, s.Server.Port)
	assert.Equal(t, DefaultNotificationTime, s.Notifications.Time)
	assert.Equal(t, DefaultReminderDaysCSV, s.Notifications.DefaultReminderDays)
	assert.Equal(t, DefaultStorageDriver, s.Storage.Driver)
}

func TestLoadSettingsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte("notifications:\n  time: \"08:00\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "08:00", s.Notifications.Time)
	assert.Equal(t, DefaultPort, s.Server.Port, "Unset fields keep their defaults")
}

func TestLoadSettingsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Bad YAML", "notifications: ["},
		{"Bad time", "notifications:\n  time: \"25:00\"\n"},
		{"Bad reminder days", "notifications:\n  default_reminder_days: \"-1\"\n"},
		{"Bad port", "server:\n  port: \"99999\"\n"},
		{"Unknown storage driver", "storage:\n  driver: \"redis\"\n"},
		{"Telegram enabled without token", "telegram:\n  enabled: true\n  chat_id: 42\n"},
		{"Unknown import mode", "import:\n  mode: \"ftp\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadSettings(path)
			assert.Error(t, err)
		})
	}
}
