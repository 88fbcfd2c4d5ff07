package handler

import (
	"net/http"

	"stockledger/internal/apierror"
	"stockledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// WorkerStats reports queue and dead-letter depths for the async job pipeline.
// Operational endpoint for runbooks and dashboards.
func WorkerStats(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		pending, err := rdb.LLen(ctx, worker.QueueAlerts).Result()
		if err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("failed to read queue depth"))
			return
		}
		dead, err := worker.DLQLength(ctx, rdb, worker.QueueAlerts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("failed to read dlq depth"))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"queue":   worker.QueueAlerts,
			"pending": pending,
			"dead":    dead,
			"dlq_key": worker.DLQPrefix + worker.QueueAlerts,
		})
	}
}
