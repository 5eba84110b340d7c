package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"case-coach/server/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher 面试结束后对外发布报告。
type Publisher interface {
	PublishReport(ctx context.Context, sessionID string, r *model.Report) error
	Close() error
}

// Nop 不发布任何内容，未配置 NATS 时使用。
type Nop struct{}

func (Nop) PublishReport(context.Context, string, *model.Report) error { return nil }
func (Nop) Close() error                                               { return nil }

// ReportMessage 发布到消息总线上的报告载荷。
type ReportMessage struct {
	SessionID   string        `json:"session_id"`
	PublishedAt time.Time     `json:"published_at"`
	Report      *model.Report `json:"report"`
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher 把报告发布到 <subject>.<sessionID>。
type NATSPublisher struct {
	conn    conn
	subject string
	now     func() time.Time
	logger  *slog.Logger
}

// NewNATSPublisher 连接 NATS。连接断开后由客户端自动重连。
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if subject == "" {
		return nil, errors.New("notify: subject required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("casecoach"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl(), "subject", subject)
	return newNATSPublisher(nc, subject, logger), nil
}

func newNATSPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, now: time.Now, logger: logger}
}

// Subject 返回某个会话的发布主题。
func (p *NATSPublisher) Subject(sessionID string) string {
	return p.subject + "." + sessionID
}

func (p *NATSPublisher) PublishReport(ctx context.Context, sessionID string, r *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil {
		return errors.New("notify: nil report")
	}
	data, err := json.Marshal(ReportMessage{SessionID: sessionID, PublishedAt: p.now().UTC(), Report: r})
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	subject := p.Subject(sessionID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Info("report published", "subject", subject, "bytes", len(data))
	return nil
}

// Close 发送缓冲区中的消息后关闭连接。
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
