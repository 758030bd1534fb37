package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gridlands.gg/internal/persistence/snapshot"
	"gridlands.gg/internal/sim/tuning"
	"gridlands.gg/internal/sim/world"
)

type RemoteConfig struct {
	Endpoint      string
	Token         string
	WorldID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

// RemoteIndex ships index events to an HTTP ingest endpoint in batches.
// A failed flush keeps its batch and retries with backoff; only when the
// retained backlog outgrows its cap are the oldest events shed.
type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	enqueued   atomic.Uint64
	dropped    atomic.Uint64
	flushOK    atomic.Uint64
	flushFail  atomic.Uint64
	pendingLen atomic.Int64
	lastFlush  atomic.Int64
}

type remoteEvent struct {
	Kind    string          `json:"kind"`
	WorldID string          `json:"world_id"`
	Payload json.RawMessage `json:"payload"`
}

type remoteSnapshotPayload struct {
	Tick       uint64 `json:"tick"`
	Path       string `json:"path"`
	Seed       int64  `json:"seed"`
	Epoch      uint64 `json:"epoch"`
	Active     bool   `json:"active"`
	Players    int    `json:"players"`
	Cells      int    `json:"cells"`
	EpochFinal bool   `json:"epoch_final"`
}

type remoteEpochPayload struct {
	Epoch      uint64 `json:"epoch"`
	EndTick    uint64 `json:"end_tick"`
	Seed       int64  `json:"seed"`
	Path       string `json:"path"`
	RecordedAt string `json:"recorded_at"`
}

type remoteTuningPayload struct {
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

type remoteMetaPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RemoteStats mirrors Stats for the remote backend. FlushFailTotal
// counts failed POSTs; the batch behind a failure is retained, so a
// nonzero value does not by itself mean data was lost.
type RemoteStats struct {
	QueueLen   int
	QueueCap   int
	PendingLen int

	EnqueuedTotal     uint64
	QueueDroppedTotal uint64
	FlushOKTotal      uint64
	FlushFailTotal    uint64

	LastFlushOKUnix int64
}

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty ingest endpoint")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("empty world id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	r := &RemoteIndex{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan remoteEvent, 32768),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()

	return r, nil
}

func (r *RemoteIndex) Close() error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.ch)
		r.wg.Wait()
	})
	return nil
}

func (r *RemoteIndex) WriteTick(entry world.TickLogEntry) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	r.enqueue("tick", entry)
	return nil
}

func (r *RemoteIndex) WriteAudit(entry world.AuditEntry) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	r.enqueue("audit", entry)
	return nil
}

func (r *RemoteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	r.enqueue("snapshot", remoteSnapshotPayload{
		Tick:       snap.Header.Tick,
		Path:       path,
		Seed:       snap.Seed,
		Epoch:      snap.Epoch,
		Active:     snap.Active,
		Players:    len(snap.Players),
		Cells:      len(snap.Cells),
		EpochFinal: snap.EpochFinal,
	})
	return nil
}

func (r *RemoteIndex) RecordEpoch(epoch, endTick uint64, seed int64, path string) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	if epoch == 0 || strings.TrimSpace(path) == "" {
		return nil
	}
	r.enqueue("epoch", remoteEpochPayload{
		Epoch:      epoch,
		EndTick:    endTick,
		Seed:       seed,
		Path:       path,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (r *RemoteIndex) UpsertTuning(t tuning.Tuning) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	r.enqueue("tuning", remoteTuningPayload{
		Digest:    t.Digest(),
		JSON:      string(body),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (r *RemoteIndex) UpsertMeta(key, value string) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	r.enqueue("meta", remoteMetaPayload{Key: key, Value: value})
	return nil
}

func (r *RemoteIndex) Stats() RemoteStats {
	return RemoteStats{
		QueueLen:          len(r.ch),
		QueueCap:          cap(r.ch),
		PendingLen:        int(r.pendingLen.Load()),
		EnqueuedTotal:     r.enqueued.Load(),
		QueueDroppedTotal: r.dropped.Load(),
		FlushOKTotal:      r.flushOK.Load(),
		FlushFailTotal:    r.flushFail.Load(),
		LastFlushOKUnix:   r.lastFlush.Load(),
	}
}

func (r *RemoteIndex) enqueue(kind string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.printf("remote index marshal kind=%s err=%v", kind, err)
		return
	}
	ev := remoteEvent{Kind: kind, WorldID: r.cfg.WorldID, Payload: raw}
	select {
	case r.ch <- ev:
		r.enqueued.Add(1)
	default:
		r.dropped.Add(1)
		r.printf("remote index queue full; drop kind=%s world=%s", ev.Kind, ev.WorldID)
	}
}

func (r *RemoteIndex) loop() {
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	var (
		pending []remoteEvent
		retryAt time.Time
		backoff = r.cfg.FlushInterval
	)
	retainMax := 8 * r.cfg.BatchSize

	flush := func() {
		if len(pending) == 0 || time.Now().Before(retryAt) {
			return
		}
		n := len(pending)
		if n > r.cfg.BatchSize {
			n = r.cfg.BatchSize
		}
		if err := r.sendBatch(pending[:n]); err != nil {
			r.flushFail.Add(1)
			r.printf("remote index flush failed batch=%d err=%v", n, err)
			// Keep the batch and back off; delivery order is preserved.
			retryAt = time.Now().Add(backoff)
			if backoff *= 2; backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			if over := len(pending) - retainMax; over > 0 {
				pending = pending[over:]
				r.dropped.Add(uint64(over))
			}
		} else {
			r.flushOK.Add(1)
			r.lastFlush.Store(time.Now().Unix())
			pending = pending[n:]
			retryAt = time.Time{}
			backoff = r.cfg.FlushInterval
		}
		r.pendingLen.Store(int64(len(pending)))
	}

	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				// Closing: push what we can, bounded retries.
				for i := 0; i < 3 && len(pending) > 0; i++ {
					retryAt = time.Time{}
					flush()
					if len(pending) > 0 {
						time.Sleep(200 * time.Millisecond)
					}
				}
				return
			}
			pending = append(pending, ev)
			r.pendingLen.Store(int64(len(pending)))
			if len(pending) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *RemoteIndex) sendBatch(events []remoteEvent) error {
	if len(events) == 0 {
		return nil
	}

	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, r.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if r.cfg.Token != "" {
		req.Header.Set("x-gl-index-token", r.cfg.Token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func (r *RemoteIndex) printf(format string, args ...any) {
	if r != nil && r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}
