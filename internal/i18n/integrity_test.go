package i18n

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

// TestLocaleIntegrity ensures that every translation key defined in
// config.go exists in every embedded locale, and that the locales carry
// the same key set.
func TestLocaleIntegrity(t *testing.T) {
	keysToCheck := []string{
		config.TKeyEvtSummary,
		config.TKeyEvtSummaryAge,
		config.TKeyEvtSummaryBirth,
		config.TKeyRemToday,
		config.TKeyRemTodayAge,
		config.TKeyRemUpcoming,
		config.TKeyRemUpcomingAge,
	}

	entries, err := localeFS.ReadDir("locales")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	keySets := make(map[string]map[string]bool)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}

		content, err := localeFS.ReadFile("locales/" + name)
		require.NoError(t, err)

		var jsonMap map[string]interface{}
		require.NoErrorf(t, json.Unmarshal(content, &jsonMap), "%s must be valid JSON", name)

		keys := make(map[string]bool, len(jsonMap))
		for k := range jsonMap {
			if strings.HasPrefix(k, "_") {
				continue
			}
			keys[k] = true
		}
		keySets[name] = keys

		for _, key := range keysToCheck {
			assert.Truef(t, keys[key], "Key %q defined in config.go is missing in %s", key, name)
		}

		for key := range keys {
			found := false
			for _, k := range keysToCheck {
				if k == key {
					found = true
					break
				}
			}
			if !found {
				t.Logf("Warning: key %q exists in %s but is not checked in the test suite (might be unused)", key, name)
			}
		}
	}

	// Every locale must carry the same key set as English.
	en := keySets["active.en.json"]
	require.NotNil(t, en)
	for name, keys := range keySets {
		assert.Equalf(t, en, keys, "%s must define the same keys as active.en.json", name)
	}
}
