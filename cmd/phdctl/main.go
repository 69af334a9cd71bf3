// Command phdctl 审批流程运维工具：迁移、查看转移表、维护用户权限、签发开发用 Token
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/service"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/workflow"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/database"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/jwt"
	applogger "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/logger"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/redis"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// app 子命令共享的依赖，按需初始化
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) database() (*gorm.DB, *sql.DB, error) {
	if err := a.load(); err != nil {
		return nil, nil, err
	}
	if a.db == nil {
		db, err := database.NewDB(&a.cfg.Database, a.cfg.Log.Level, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		a.db = db
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, nil, err
	}
	return a.db, sqlDB, nil
}

// directory 用户目录；Redis 可用时同时清除权限缓存
func (a *app) directory() (service.DirectoryService, func(), error) {
	db, sqlDB, err := a.database()
	if err != nil {
		return nil, nil, err
	}
	var cache service.PermissionCache
	rdb, err := redis.NewClient(&a.cfg.Redis, a.logger)
	if err != nil {
		a.logger.Warn("Redis 不可用，权限缓存将在 TTL 后自然失效", zap.Error(err))
	} else {
		cache = rdb
	}
	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		sqlDB.Close()
	}
	return service.NewDirectoryService(repository.NewRepository(db), cache, a.cfg.Redis.PermissionTTL, a.logger), cleanup, nil
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "phdctl",
		Short:        "PhD 审批流程运维工具",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	cmd.AddCommand(migrateCmd(a), workflowCmd(), userCmd(a), tokenCmd(a))
	return cmd
}

// ── migrate ──

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "数据库迁移"}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlDB, err := a.database()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return database.RunMigrations(sqlDB, a.logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "查看当前迁移版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlDB, err := a.database()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			version, dirty, err := database.MigrationVersion(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})
	return cmd
}

// ── workflow ──

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "workflow", Short: "查看流程定义"}

	cmd.AddCommand(&cobra.Command{
		Use:       "graph [phd-request|phd-proposal]",
		Short:     "打印状态转移表",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(workflow.PhdRequest), string(workflow.PhdProposal)},
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []workflow.Name{workflow.PhdRequest, workflow.PhdProposal}
			if len(args) == 1 {
				names = []workflow.Name{workflow.Name(args[0])}
			}
			for _, name := range names {
				def, ok := workflow.Lookup(name)
				if !ok {
					return fmt.Errorf("未知流程: %s", name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s (submitter: %s)\n", def.Name, def.Submitter)
				for _, line := range def.Graph() {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return cmd
}

// ── user ──

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "维护用户目录与权限"}

	var name, userType string
	upsert := &cobra.Command{
		Use:   "upsert <email>",
		Short: "新增或更新用户",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cleanup, err := a.directory()
			if err != nil {
				return err
			}
			defer cleanup()
			return dir.Upsert(cmd.Context(), args[0], name, userType)
		},
	}
	upsert.Flags().StringVar(&name, "name", "", "姓名")
	upsert.Flags().StringVar(&userType, "type", "faculty", "用户类型: student | faculty | staff")

	grant := &cobra.Command{
		Use:   "grant <email> <permission>",
		Short: "授予权限，如 phd-request:drc-convener",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePermission(args[1]); err != nil {
				return err
			}
			dir, cleanup, err := a.directory()
			if err != nil {
				return err
			}
			defer cleanup()
			return dir.Grant(cmd.Context(), args[0], args[1])
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <email> <permission>",
		Short: "撤销权限",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cleanup, err := a.directory()
			if err != nil {
				return err
			}
			defer cleanup()
			return dir.Revoke(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(upsert, grant, revoke)
	return cmd
}

// validatePermission 只接受已知流程角色权限与管理权限
func validatePermission(p string) error {
	if p == "ims:admin" {
		return nil
	}
	for _, def := range []*workflow.Definition{workflow.RequestDefinition(), workflow.ProposalDefinition()} {
		for _, r := range []workflow.Role{workflow.RoleDrcConvener, workflow.RoleHod, workflow.RoleDrcMember} {
			if def.Permission(r) == p {
				return nil
			}
		}
	}
	return fmt.Errorf("未知权限: %s", p)
}

// ── token ──

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "开发环境 Token 工具"}

	var (
		name, userType string
		perms          []string
	)
	issue := &cobra.Command{
		Use:   "issue <email>",
		Short: "签发 Access Token（仅用于本地联调）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			mgr := jwt.NewManager(&a.cfg.Auth)
			token, err := mgr.GenerateAccessToken(strings.ToLower(args[0]), name, userType, perms)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&name, "name", "", "姓名")
	issue.Flags().StringVar(&userType, "type", "faculty", "用户类型")
	issue.Flags().StringSliceVar(&perms, "perm", nil, "权限，可重复")

	revoke := &cobra.Command{
		Use:   "revoke <token>",
		Short: "将 Token 加入黑名单直至其过期",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			claims, err := jwt.NewManager(&a.cfg.Auth).ParseToken(args[0])
			if err != nil {
				return err
			}
			rdb, err := redis.NewClient(&a.cfg.Redis, a.logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			ttl := time.Until(claims.ExpiresAt.Time)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已注销 %s（剩余 %s）\n", claims.Email, ttl.Round(time.Second))
			return nil
		},
	}

	cmd.AddCommand(issue, revoke)
	return cmd
}
