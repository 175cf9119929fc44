package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/placequest/placequest-api/internal/api/metrics"
	"github.com/placequest/placequest-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	touchTimeout   = 3 * time.Second
)

type touchRequest struct {
	tokenID string
	at      time.Time
}

// TouchDispatcher records token last-used timestamps off the request path.
// Requests are sharded by token id so updates for one token apply in order.
// Enqueueing never blocks; when a shard is full the update is dropped.
type TouchDispatcher struct {
	workers []chan touchRequest
	tokens  ports.TokenRepository
	log     zerolog.Logger
}

// NewTouchDispatcher creates a dispatcher with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewTouchDispatcher(numWorkers int, tokens ports.TokenRepository, log zerolog.Logger) *TouchDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &TouchDispatcher{
		workers: make([]chan touchRequest, numWorkers),
		tokens:  tokens,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan touchRequest, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *TouchDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Touch implements ports.TokenToucher.
func (d *TouchDispatcher) Touch(tokenID string, at time.Time) {
	idx := d.shardIndex(tokenID)
	select {
	case d.workers[idx] <- touchRequest{tokenID: tokenID, at: at}:
		metrics.TouchQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.TouchDroppedTotal.Inc()
		d.log.Debug().Str("token_id", tokenID).Int("worker_id", idx).Msg("touch queue full, dropping update")
	}
}

// shardIndex maps a token id deterministically to a worker index.
func (d *TouchDispatcher) shardIndex(tokenID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tokenID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *TouchDispatcher) runWorker(ctx context.Context, id int, ch <-chan touchRequest) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-ch:
			metrics.TouchQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			touchCtx, cancel := context.WithTimeout(ctx, touchTimeout)
			if err := d.tokens.Touch(touchCtx, req.tokenID, req.at); err != nil {
				d.log.Warn().Err(err).
					Str("token_id", req.tokenID).
					Int("worker_id", id).
					Msg("failed to record token usage")
			}
			cancel()
		}
	}
}
