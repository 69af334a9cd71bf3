package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
)

// Message 一封待发送邮件
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer 基于 go-mail 的 SMTP 实现
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// New 按配置创建 Mailer；未启用邮件时返回只记录日志的实现
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled {
		return &LogMailer{logger: logger}
	}

	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify, // 仅用于本地开发
	}
	return &SMTPMailer{dialer: d, from: cfg.From}
}

// Send 发送 HTML 邮件；收件人为空时不发送
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	em := mail.NewMessage()
	em.SetHeader("From", m.from)
	em.SetHeader("To", msg.To...)
	em.SetHeader("Subject", msg.Subject)
	em.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(em); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// LogMailer 邮件关闭时使用，只记录日志
type LogMailer struct {
	logger *zap.Logger
}

// Send 记录邮件摘要
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	m.logger.Info("邮件未启用，跳过发送",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
