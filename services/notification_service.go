package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"servicematch-server/models"
	ws "servicematch-server/websocket"
)

// NotificationService persists notifications and nudges connected clients over
// the websocket hub. Every method is fire-and-forget: a failed dispatch is
// logged and dropped, it never fails the state transition that triggered it.
type NotificationService struct {
	db  *gorm.DB
	hub *ws.Hub
}

// NewNotificationService creates a notification service. The hub may be nil
// (tests, one-off commands); realtime nudges are skipped in that case.
func NewNotificationService(db *gorm.DB, hub *ws.Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub}
}

// Notify stores a notification row for the user and pushes a realtime nudge
func (ns *NotificationService) Notify(userID uint, title, body, ntype string, data map[string]interface{}) {
	payload := ""
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			payload = string(raw)
		}
	}

	notification := models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   ntype,
		Data:   payload,
	}

	if err := ns.db.Create(&notification).Error; err != nil {
		log.Printf("⚠️ Failed to store notification for user %d: %v", userID, err)
		return
	}

	if ns.hub != nil {
		ns.hub.SendToUser(userID, &ws.Message{
			Type:      ws.EventNotification,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"notification_id": notification.ID,
				"type":            ntype,
			},
		})
	}

	go ns.sendPush(userID, title, body, data)

	log.Printf("📱 Notification queued for user %d: %s", userID, title)
}

// sendPush delivers the notification to the user's registered devices via the
// Expo push API. Failures are logged per token and swallowed.
func (ns *NotificationService) sendPush(userID uint, title, body string, data map[string]interface{}) {
	var tokens []models.PushToken
	if err := ns.db.Where("user_id = ? AND active = ?", userID, true).Find(&tokens).Error; err != nil {
		log.Printf("⚠️ Failed to fetch push tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	for _, token := range tokens {
		if err := sendExpoPush(token.Token, title, body, data); err != nil {
			log.Printf("⚠️ Expo push to user %d failed: %v", userID, err)
		}
	}
}

// sendExpoPush posts a single notification to the Expo push endpoint
func sendExpoPush(token, title, body string, data map[string]interface{}) error {
	payload := map[string]interface{}{
		"to":        token,
		"title":     title,
		"body":      body,
		"data":      data,
		"sound":     "default",
		"priority":  "high",
		"channelId": "match_updates",
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, "https://exp.host/--/api/v2/push/send", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expo push failed: %s - %s", resp.Status, string(respBody))
	}
	return nil
}

// PushMatchEvent pushes an id-only realtime event to both parties of a match.
// Receivers re-fetch the match over HTTP; the event itself carries no state.
func (ns *NotificationService) PushMatchEvent(match *models.Match, event string, excludeUserID uint) {
	if ns.hub == nil {
		return
	}

	message := &ws.Message{
		Type:      event,
		MatchID:   match.ID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"match_id": match.ID,
		},
	}

	for _, userID := range []uint{match.CustomerID, match.ProviderID} {
		if userID == excludeUserID {
			continue
		}
		ns.hub.SendToUser(userID, message)
	}
}
