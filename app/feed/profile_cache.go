package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProfileCache holds per-partner marker profiles read from <dir>/<partner>.yml.
type ProfileCache struct {
	profilesDir string
	cache       map[string]*Profile
	mu          sync.RWMutex
}

func NewProfileCache(profilesDir string) *ProfileCache {
	return &ProfileCache{
		profilesDir: profilesDir,
		cache:       make(map[string]*Profile),
	}
}

func (pc *ProfileCache) Run() error {
	if pc.profilesDir == "" {
		return nil
	}
	if _, err := os.Stat(pc.profilesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.profilesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		partner := strings.TrimSuffix(filepath.Base(file), ".yml")

		profile, err := pc.LoadProfile(partner)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Profile loaded", "partner", partner, "record_tag", profile.RecordTag)
	}

	return nil
}

func (pc *ProfileCache) LoadProfile(partner string) (*Profile, error) {
	profileFile := pc.getProfileFilePath(partner)
	profile, err := pc.parseProfile(profileFile)
	if err != nil {
		return nil, err
	}

	profile.Name = partner

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", profileFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[partner] = profile

	return profile, nil
}

// Lookup returns the partner's profile, reading its file on first use, or the
// default profile when the partner has none.
func (pc *ProfileCache) Lookup(partner string) (*Profile, error) {
	pc.mu.RLock()
	profile, ok := pc.cache[partner]
	pc.mu.RUnlock()
	if ok {
		return profile, nil
	}

	if pc.profilesDir == "" || partner == "" {
		return DefaultProfile(), nil
	}
	if _, err := os.Stat(pc.getProfileFilePath(partner)); os.IsNotExist(err) {
		return DefaultProfile(), nil
	}

	return pc.LoadProfile(partner)
}

func (pc *ProfileCache) GetProfileCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

// parseProfile overlays the file on top of the default profile, so a file only
// needs the sections that differ.
func (pc *ProfileCache) parseProfile(profileFile string) (*Profile, error) {
	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return profile, nil
}

func (pc *ProfileCache) getProfileFilePath(partner string) string {
	return filepath.Join(pc.profilesDir, partner+".yml")
}
