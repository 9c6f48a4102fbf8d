package alerts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// RunWorker consumes event tasks and writes the audit log. Blocks until
// the server stops.
func RunWorker(redisAddr string) error {
	opts := asynq.RedisClientOpt{Addr: redisAddr}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProductListed, handleProductListed)
	mux.HandleFunc(TaskOrderPlaced, handleOrderPlaced)
	mux.HandleFunc(TaskOrderConfirmed, handleOrderConfirmed)
	mux.HandleFunc(TaskFundsReleased, handleFundsReleased)
	mux.HandleFunc(TaskReputationUpdated, handleReputationUpdated)
	mux.HandleFunc(TaskTimeoutUpdated, handleTimeoutUpdated)

	server := asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"events": 10,
		},
	})
	return server.Run(mux)
}

func handleProductListed(_ context.Context, t *asynq.Task) error {
	var p ProductListedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] product listed -> id=%d seller=%s category=%s price=%d", p.ProductID, p.SellerID, p.Category, p.Price)
	return nil
}

func handleOrderPlaced(_ context.Context, t *asynq.Task) error {
	var p OrderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] order placed -> id=%d product=%d buyer=%s amount=%d", p.OrderID, p.ProductID, p.BuyerID, p.Amount)
	return nil
}

func handleOrderConfirmed(_ context.Context, t *asynq.Task) error {
	var p OrderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] order confirmed -> id=%d buyer=%s", p.OrderID, p.BuyerID)
	return nil
}

func handleFundsReleased(_ context.Context, t *asynq.Task) error {
	var p FundsReleasedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] funds released -> order=%d seller=%s amount=%d path=%s", p.OrderID, p.SellerID, p.Amount, p.Path)
	return nil
}

func handleReputationUpdated(_ context.Context, t *asynq.Task) error {
	var p ReputationUpdatedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] reputation updated -> user=%s total=%d delta=%+d", p.UserID, p.Total, p.Delta)
	return nil
}

func handleTimeoutUpdated(_ context.Context, t *asynq.Task) error {
	var p TimeoutUpdatedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	log.Printf("[audit] delivery timeout updated -> %s", p.Timeout)
	return nil
}
