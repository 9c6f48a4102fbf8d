package alerts

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"marketbay/internal/catalog"
	"marketbay/internal/escrow"
)

// RedisAddrFromEnv resolves the Redis address the same way for the
// server and the worker.
func RedisAddrFromEnv() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		return host + ":" + port
	}
	return "127.0.0.1:6379"
}

// Publisher enqueues one task per observable event. It satisfies the
// catalog, escrow and reputation notification interfaces. Enqueueing is
// best-effort: the state transition has already committed, so a queue
// failure is logged, never propagated back into the engine.
type Publisher struct {
	client *asynq.Client
}

func NewPublisher(redisAddr string) *Publisher {
	return &Publisher{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (p *Publisher) Close() {
	if p.client != nil {
		_ = p.client.Close()
	}
}

func (p *Publisher) ProductListed(pr catalog.Product) {
	p.enqueue(TaskProductListed, ProductListedPayload{
		ProductID: pr.ID,
		SellerID:  pr.SellerID,
		Name:      pr.Name,
		Category:  string(pr.Category),
		Price:     pr.Price,
		SentAt:    time.Now(),
	})
}

func (p *Publisher) OrderPlaced(o escrow.Order) {
	p.enqueue(TaskOrderPlaced, orderPayload(o))
}

func (p *Publisher) OrderConfirmed(o escrow.Order) {
	p.enqueue(TaskOrderConfirmed, orderPayload(o))
}

func (p *Publisher) FundsReleased(o escrow.Order, path string) {
	p.enqueue(TaskFundsReleased, FundsReleasedPayload{
		OrderID:  o.ID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
		Amount:   o.Amount,
		Path:     path,
		SentAt:   time.Now(),
	})
}

func (p *Publisher) ReputationUpdated(userID string, total, delta int64) {
	p.enqueue(TaskReputationUpdated, ReputationUpdatedPayload{
		UserID: userID,
		Total:  total,
		Delta:  delta,
		SentAt: time.Now(),
	})
}

func (p *Publisher) TimeoutUpdated(d time.Duration) {
	p.enqueue(TaskTimeoutUpdated, TimeoutUpdatedPayload{
		Timeout: d.String(),
		SentAt:  time.Now(),
	})
}

func (p *Publisher) enqueue(taskType string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[events] marshal %s: %v", taskType, err)
		return
	}
	task := asynq.NewTask(taskType, b)
	if _, err := p.client.Enqueue(task, asynq.Queue("events")); err != nil {
		log.Printf("[events] enqueue %s: %v", taskType, err)
	}
}

func orderPayload(o escrow.Order) OrderPayload {
	return OrderPayload{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Amount:    o.Amount,
		SentAt:    time.Now(),
	}
}
