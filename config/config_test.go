package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef-secret"
workflow:
  direct_flow: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if !cfg.Workflow.DirectFlow {
		t.Error("期望 direct_flow=true")
	}
	if cfg.Workflow.DrcMaxMembers != 8 {
		t.Errorf("期望 drc_max_members 默认 8，实际 %d", cfg.Workflow.DrcMaxMembers)
	}
	if cfg.Workflow.DacMinMembers != 2 {
		t.Errorf("期望 dac_min_members 默认 2，实际 %d", cfg.Workflow.DacMinMembers)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望端口 8080，实际 %d", cfg.Server.Port)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef-secret"
`)
	t.Setenv("PHD_WORKFLOW_TODO_DEADLINE_DAYS", "14")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Workflow.TodoDeadlineDays != 14 {
		t.Errorf("期望环境变量覆盖为 14，实际 %d", cfg.Workflow.TodoDeadlineDays)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "short"
`)
	if _, err := Load(path); err == nil {
		t.Error("过短的 jwt_secret 应校验失败")
	}
}

func TestValidate_MailEnabledWithoutHost(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Auth:     AuthConfig{JWTSecret: "0123456789abcdef"},
		Workflow: WorkflowConfig{DrcMaxMembers: 8, TodoDeadlineDays: 7},
		Mail:     MailConfig{Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("启用邮件但未配置 SMTP 时应校验失败")
	}
}
