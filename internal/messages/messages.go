// Package messages provides the built-in reply and thread templates. The bot prefers wiki
// copies of these pages and falls back to the embedded markdown files.
package messages

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed mdtemplates/*.md
var templateFiles embed.FS

// Template names, shared with the wiki page names.
const (
	ConfirmationMessage = "confirmation_message"
	UserDoesntExist     = "user_doesnt_exist"
	CantUpdateYourself  = "cant_update_yourself"
	FlairUpdateFailed   = "flair_update_failed"
	ReloadSuccess       = "reload_success"
	MonthlyPost         = "monthly_post"
	MonthlyPostTitle    = "monthly_post_title"
	MonthlyPostFlairID  = "monthly_post_flair_id"
	OutageRecovery      = "outage_recovery"
)

// cache stores template files that have already been read
var (
	cache   = make(map[string]string)
	cacheMu sync.RWMutex
)

// Get returns the embedded default for a template name.
func Get(name string) (string, error) {
	cacheMu.RLock()
	if text, exists := cache[name]; exists {
		cacheMu.RUnlock()
		return text, nil
	}
	cacheMu.RUnlock()

	data, err := templateFiles.ReadFile(path.Join("mdtemplates", name+".md"))
	if err != nil {
		return "", fmt.Errorf("template %q not found: %w", name, err)
	}
	text := string(data)

	cacheMu.Lock()
	cache[name] = text
	cacheMu.Unlock()

	return text, nil
}

// MustGet returns the embedded default for a template name, panicking if it does not exist.
// Use this for templates that are required at initialization time.
func MustGet(name string) string {
	text, err := Get(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load template: %v", err))
	}
	return text
}

// Format replaces {key} placeholders with values from data. Unknown placeholders are left as
// they are.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(data))
	for key, value := range data {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ClearCache clears the template cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]string)
	cacheMu.Unlock()
}

// List returns the names of all embedded templates.
func List() ([]string, error) {
	entries, err := templateFiles.ReadDir("mdtemplates")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(names)
	return names, nil
}
