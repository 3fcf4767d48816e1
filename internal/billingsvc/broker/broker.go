package broker

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/gamegate-services/configs"
	"github.com/avvvet/gamegate-services/internal/comm"
)

const topicBillingEvents = "billing.events"

// Broker publishes billing events for downstream services. Publishing is
// best effort: a bus failure is logged and never fails the billing decision.
type Broker struct {
	natsConn *nats.Conn
}

func NewBroker(natsConn *nats.Conn) *Broker {
	return &Broker{natsConn: natsConn}
}

func (b *Broker) PublishPaymentEvent(eventType, userID, gameID, status, method, amount, description string) {
	if b == nil || b.natsConn == nil {
		return
	}

	event := comm.PaymentEvent{
		Type:        eventType,
		UserID:      userID,
		GameID:      gameID,
		Status:      status,
		Method:      method,
		Amount:      amount,
		InstanceId:  config.GetInstanceId(),
		OccurredAt:  time.Now().UTC(),
		Description: description,
	}

	payload, err := json.Marshal(&event)
	if err != nil {
		log.Errorf("unable to marshal payment event: %v", err)
		return
	}

	if err := b.natsConn.Publish(topicBillingEvents, payload); err != nil {
		log.Errorf("unable to publish payment event: %v", err)
	}
}
