package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getAlby/kychub.go/db/models"
)

const webhookTimeout = 10 * time.Second

// StartWebhookSubscription posts every event to the configured webhook until ctx is done.
func (svc *KychubService) StartWebhookSubscription(ctx context.Context) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", svc.Config.WebhookUrl)
	events, unsubscribe, err := svc.SubscribeEvents()
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer unsubscribe()

	client := &http.Client{Timeout: webhookTimeout}
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if err := svc.postToWebhook(ctx, client, event); err != nil {
				svc.Logger.Errorf("Webhook delivery of event %s (%s) failed: %v", event.ID, event.Type, err)
			}
		}
	}
}

func (svc *KychubService) postToWebhook(ctx context.Context, client *http.Client, event models.Event) error {
	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(event); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.Config.WebhookUrl, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Kychub-Event", event.Type)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}
