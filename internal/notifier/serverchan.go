// Package notifier pushes a short "digest published" notice after a run.
// Notification failures are logged by the caller and never fail the pipeline.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeypan/arxiv-digest/internal/retry"
)

// Notifier announces a published digest.
type Notifier interface {
	Notify(ctx context.Context, date string, paperCount int) error
}

// ServerChanNotifier sends a WeChat push via the ServerChan relay.
type ServerChanNotifier struct {
	key         string
	siteURL     string
	baseURL     string
	client      *http.Client
	retryConfig retry.Config
}

func NewServerChanNotifier(key, siteURL string) *ServerChanNotifier {
	return &ServerChanNotifier{
		key:     key,
		siteURL: siteURL,
		baseURL: "https://sctapi.ftqq.com",
		client:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 2,
			Delay:      1 * time.Second,
		},
	}
}

func (n *ServerChanNotifier) Notify(ctx context.Context, date string, paperCount int) error {
	var title, desc string
	if paperCount > 0 {
		title = fmt.Sprintf("ArXiv Daily Digest %s 已更新 (%d 篇)", date, paperCount)
		desc = fmt.Sprintf("今日共 %d 篇符合筛选条件的论文。", paperCount)
	} else {
		title = fmt.Sprintf("ArXiv Daily Digest %s 暂无新论文", date)
		desc = "今天没有符合筛选条件的论文。"
	}
	if n.siteURL != "" {
		desc += "\n\n点击查看：" + strings.TrimRight(n.siteURL, "/") + "/"
	}

	return retry.Do(ctx, n.retryConfig, func(ctx context.Context) error {
		return n.send(ctx, title, desc)
	})
}

func (n *ServerChanNotifier) send(ctx context.Context, title, desc string) error {
	endpoint := fmt.Sprintf("%s/%s.send", n.baseURL, n.key)
	form := url.Values{}
	form.Set("title", title)
	form.Set("desp", desc)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("serverchan: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("serverchan: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("serverchan: unexpected status %d", resp.StatusCode)
	}
	return nil
}
