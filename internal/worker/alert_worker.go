package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	alertKeyPrefix = "alerts:product:"
	alertTTL       = 24 * time.Hour
)

// AlertWorker maintains the latest-alert projection in Redis. Dashboard and
// notification collaborators read these keys; this worker never touches the
// durable store.
type AlertWorker struct {
	rdb *redis.Client
}

func NewAlertWorker(rdb *redis.Client) *AlertWorker {
	return &AlertWorker{rdb: rdb}
}

func (w *AlertWorker) Handle(ctx context.Context, payload json.RawMessage) error {
	var alert AlertPayload
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("decode alert payload: %w", err)
	}

	key := alertKeyPrefix + alert.ProductID
	if err := w.rdb.Set(ctx, key, []byte(payload), alertTTL).Err(); err != nil {
		return fmt.Errorf("store alert projection: %w", err)
	}

	log.Warn().
		Str("product_id", alert.ProductID).
		Str("status", alert.Status).
		Int("quantity", alert.Quantity).
		Int("threshold", alert.LowStockThreshold).
		Msg("stock alert recorded")
	return nil
}
