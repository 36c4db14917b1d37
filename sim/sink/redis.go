package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/inference-sim/assembly-sim/sim"
)

// RedisSink appends each snapshot to a Redis stream with XADD. Entries carry
// seq, clock and event as plain fields and the full snapshot as JSON.
type RedisSink struct {
	ctx    context.Context
	client redis.Cmdable
	stream string
	maxLen int64
}

// StreamKey names the stream for one run.
func StreamKey(prefix, runID string) string {
	return fmt.Sprintf("%s:run:%s:snapshots", prefix, runID)
}

// NewRedisSink writes to stream. maxLen > 0 caps the stream length
// approximately. The client is owned by the caller.
func NewRedisSink(ctx context.Context, client redis.Cmdable, stream string, maxLen int64) *RedisSink {
	return &RedisSink{ctx: ctx, client: client, stream: stream, maxLen: maxLen}
}

// Record implements sim.SnapshotSink.
func (r *RedisSink) Record(s sim.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling snapshot %d: %w", s.Seq, err)
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"seq":      s.Seq,
			"clock":    s.Clock,
			"event":    s.Event,
			"snapshot": string(payload),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(r.ctx, args).Err(); err != nil {
		return fmt.Errorf("XADD %s seq %d: %w", r.stream, s.Seq, err)
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (r *RedisSink) Close() error { return nil }

var _ Sink = (*RedisSink)(nil)
