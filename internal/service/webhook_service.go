package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/pkg/logger"

	"go.uber.org/zap"
)

// WebhookService 向外部接收端推送事件。推送是 fire-and-forget：
// 任何失败都被吞掉，绝不影响触发它的主流程；仅在 debug 模式下记日志。
type WebhookService struct {
	cfg    config.WebhookConfig
	mode   string
	client *http.Client
}

func NewWebhookService(cfg config.WebhookConfig, mode string) *WebhookService {
	return &WebhookService{
		cfg:    cfg,
		mode:   mode,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type dashboardPushPayload struct {
	AppID          string            `json:"appId"`
	UserID         uint              `json:"userId"`
	EventType      string            `json:"eventType"`
	SummaryVersion int               `json:"summaryVersion"`
	Summary        *DashboardSummary `json:"summary"`
}

type parentNotifyPayload struct {
	UserID    uint   `json:"userId"`
	EventType string `json:"eventType"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

func (w *WebhookService) PushDashboard(userID uint, eventType string, summary *DashboardSummary) {
	w.post(w.cfg.DashboardURL, dashboardPushPayload{
		AppID:          w.cfg.AppID,
		UserID:         userID,
		EventType:      eventType,
		SummaryVersion: w.cfg.SummaryVersion,
		Summary:        summary,
	})
}

func (w *WebhookService) NotifyParent(userID uint, eventType, title, path string) {
	w.post(w.cfg.ParentNotifyURL, parentNotifyPayload{
		UserID:    userID,
		EventType: eventType,
		Title:     title,
		URL:       w.cfg.SiteBaseURL + path,
	})
}

func (w *WebhookService) post(url string, payload any) {
	if url == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		w.debugLog("webhook marshal failed", url, err)
		return
	}

	resp, err := w.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		w.debugLog("webhook delivery failed", url, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.debugLog("webhook delivery rejected", url, nil, zap.Int("status", resp.StatusCode))
	}
}

func (w *WebhookService) debugLog(msg, url string, err error, fields ...zap.Field) {
	if w.mode != "debug" {
		return
	}
	fields = append(fields, zap.String("url", url))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Log.Debug(msg, fields...)
}
