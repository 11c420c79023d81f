// Package events 通知事件外发（NATS）
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NotificationCreated 通知落库后发布的事件
type NotificationCreated struct {
	ID            string    `json:"id"`
	RecipientID   string    `json:"recipient_id"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	Link          string    `json:"link"`
	RelatedPostID string    `json:"related_post_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher 发布失败只返回错误，调用方决定是否记录
type Publisher interface {
	PublishNotification(ev NotificationCreated) error
	Close()
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher url 为空时返回 NopPublisher
func NewNATSPublisher(url, subject string) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("colmena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &natsPublisher{conn: conn, subject: subject}, nil
}

func (p *natsPublisher) PublishNotification(ev NotificationCreated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *natsPublisher) Close() { p.conn.Close() }

type NopPublisher struct{}

func (NopPublisher) PublishNotification(NotificationCreated) error { return nil }
func (NopPublisher) Close()                                        {}
