package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UserConfig is what the setup wizard collects.
type UserConfig struct {
	DataDir       string
	ServerAddr    string
	WeeklyTarget  float64
	MonthlyTarget float64
	TrendFeeds    []string
	AIModel       string
	AIBaseURL     string
}

// WriteConfig renders the user configuration to
// ~/.config/affkit/config.yaml. An existing data_dir is preserved so a
// rerun of setup never orphans the databases.
func WriteConfig(uc UserConfig) error {
	path, err := DefaultConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	dataDir := uc.DataDir
	if prev, err := loadExistingConfig(path); err == nil {
		if v, ok := prev["data_dir"].(string); ok && strings.TrimSpace(v) != "" {
			dataDir = v
		}
	}

	var sb strings.Builder
	sb.WriteString("# affkit configuration\n")
	if strings.TrimSpace(dataDir) != "" {
		sb.WriteString(fmt.Sprintf("data_dir: %q\n", dataDir))
	}
	if strings.TrimSpace(uc.ServerAddr) != "" {
		sb.WriteString("server:\n")
		sb.WriteString(fmt.Sprintf("  addr: %q\n", uc.ServerAddr))
	}
	if uc.WeeklyTarget > 0 || uc.MonthlyTarget > 0 {
		sb.WriteString("targets:\n")
		if uc.WeeklyTarget > 0 {
			sb.WriteString(fmt.Sprintf("  weekly: %g\n", uc.WeeklyTarget))
		}
		if uc.MonthlyTarget > 0 {
			sb.WriteString(fmt.Sprintf("  monthly: %g\n", uc.MonthlyTarget))
		}
	}
	if len(uc.TrendFeeds) > 0 {
		sb.WriteString("trends:\n")
		sb.WriteString("  feeds:\n")
		for _, u := range uc.TrendFeeds {
			sb.WriteString(fmt.Sprintf("    - %s\n", strings.TrimSpace(u)))
		}
	}
	if strings.TrimSpace(uc.AIModel) != "" || strings.TrimSpace(uc.AIBaseURL) != "" {
		sb.WriteString("ai:\n")
		if strings.TrimSpace(uc.AIModel) != "" {
			sb.WriteString(fmt.Sprintf("  model: %q\n", uc.AIModel))
		}
		if strings.TrimSpace(uc.AIBaseURL) != "" {
			sb.WriteString(fmt.Sprintf("  base_url: %q\n", uc.AIBaseURL))
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func loadExistingConfig(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// BackupFile copies the file next to itself with a timestamp suffix.
func BackupFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ts := time.Now().Format("20060102-150405")
	return os.WriteFile(path+".bak-"+ts, b, 0o644)
}
