package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var ErrNoConfig = errors.New("no config selected")

const (
	appDir       = "mangapdf"
	profileExt   = ".yaml"
	DefaultLabel = "Default"
)

// ConfigRoot is APPDATA/mangapdf on Windows and XDG_CONFIG_HOME/mangapdf
// (falling back to ~/.config/mangapdf) elsewhere.
func ConfigRoot() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, appDir)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDir)
}

func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

func profilePath(label string) string {
	return filepath.Join(ConfigsDir(), label+profileExt)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("invalid label %q", label)
	}
	return nil
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(CurrentLabelFile())
	if os.IsNotExist(err) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil || label == "" {
		return "", ErrNoConfig
	}

	return profilePath(label), nil
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(ConfigsDir())
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()
	var out []ConfigInfo

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, profileExt) {
			continue
		}

		label := strings.TrimSuffix(name, profileExt)
		out = append(out, ConfigInfo{
			Label:  label,
			Path:   filepath.Join(ConfigsDir(), name),
			Active: label == active,
		})
	}

	slices.SortFunc(out, func(a, b ConfigInfo) int { return strings.Compare(a.Label, b.Label) })
	return out, nil
}

func SwitchConfig(label string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}

	if _, err := os.Stat(profilePath(label)); err != nil {
		return fmt.Errorf("config %q does not exist", label)
	}

	return os.WriteFile(CurrentLabelFile(), []byte(label), 0644)
}

// InitProfile writes cfg as the profile label and makes it active. An
// existing profile is left untouched unless overwrite is set; os.ErrExist is
// returned in that case.
func InitProfile(label string, cfg *Config, overwrite bool) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path := profilePath(label)
	if _, err := os.Stat(path); err == nil && !overwrite {
		return path, os.ErrExist
	}

	if err := SaveYAML(cfg, path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	if err := SwitchConfig(label); err != nil {
		return "", fmt.Errorf("failed to set active config: %w", err)
	}

	return path, nil
}

// ProfilePath returns the file of an existing profile.
func ProfilePath(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}

	path := profilePath(label)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config %q does not exist", label)
	}
	return path, nil
}

// RenameConfig moves a profile to a new label. The active selection follows
// the profile.
func RenameConfig(oldLabel, newLabel string) error {
	if err := checkLabel(newLabel); err != nil {
		return err
	}
	oldPath, err := ProfilePath(oldLabel)
	if err != nil {
		return err
	}

	newPath := profilePath(newLabel)
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("config %q already exists", newLabel)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return os.WriteFile(CurrentLabelFile(), []byte(newLabel), 0644)
	}
	return nil
}

// RemoveConfig deletes a profile. The Default profile cannot be removed.
// Removing the active profile makes Default active when it exists and
// leaves no profile selected otherwise.
func RemoveConfig(label string) error {
	if label == DefaultLabel {
		return fmt.Errorf("cannot remove the %s config", DefaultLabel)
	}
	path, err := ProfilePath(label)
	if err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == label {
		if _, err := os.Stat(profilePath(DefaultLabel)); err == nil {
			if err := SwitchConfig(DefaultLabel); err != nil {
				return fmt.Errorf("failed switching to %s: %w", DefaultLabel, err)
			}
		} else if err := os.Remove(CurrentLabelFile()); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return os.Remove(path)
}
