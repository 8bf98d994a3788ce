package lib

import (
	"fmt"

	"vpass/src/config"

	"github.com/pusher/pusher-http-go/v5"
	log "github.com/sirupsen/logrus"
)

const dashboardUpdateMessage = "A pass has been updated. Please refresh."

type PusherNotifier struct {
	client *pusher.Client
}

func NewPusherNotifier(cfg config.PusherConfig) *PusherNotifier {
	return &PusherNotifier{client: &pusher.Client{
		AppID:   cfg.AppID,
		Key:     cfg.Key,
		Secret:  cfg.Secret,
		Cluster: cfg.Cluster,
		Secure:  true,
	}}
}

func DashboardChannel(tenantID uint) string {
	return fmt.Sprintf("dashboard-%d", tenantID)
}

// NotifyDashboard is best-effort; failures are only logged.
func (p *PusherNotifier) NotifyDashboard(tenantID uint) {
	err := p.client.Trigger(DashboardChannel(tenantID), "pass-updated", map[string]string{
		"message": dashboardUpdateMessage,
	})
	if err != nil {
		log.Printf("[Pusher] dashboard %d: %s", tenantID, err.Error())
	}
}
