package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/config"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
	"github.com/camdenretail/tillcore-backend/pkg/metrics"
)

const (
	defaultBatchSize      = 100
	defaultPollMs         = 1000
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type pubSubClient interface {
	Ping(context.Context) error
	AuditPublisher() *gcppubsub.Publisher
}

type auditRepository interface {
	ListUnpublished(ctx context.Context, limit int) ([]models.AuditEntry, error)
	MarkPublished(ctx context.Context, seqs []int64) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	PubSub     pubSubClient
	Repository auditRepository
	Metrics    *metrics.FeedMetrics
	// Publisher overrides the Pub/Sub publisher, for tests.
	Publisher publisher
}

// Service pushes committed audit entries onto the feed topic in sequence
// order and stamps published_at on success. Entries that fail to publish are
// retried on the next poll; the cursor never advances past a failure, so
// consumers see a gapless sequence.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           pinger
	pubsub       pubSubClient
	repo         auditRepository
	metrics      *metrics.FeedMetrics
	pub          publisher
	batchSize    int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("audit repository is required")
	}

	pub := params.Publisher
	if pub == nil {
		if params.PubSub == nil {
			return nil, errors.New("pubsub client is required")
		}
		pub = newGCPPublisher(params.PubSub.AuditPublisher())
		if pub == nil {
			return nil, errors.New("audit topic publisher is not configured")
		}
	}

	batch := params.Config.AuditFeed.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.AuditFeed.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		metrics:      params.Metrics,
		pub:          pub,
		batchSize:    batch,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if s.pubsub != nil {
		if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
			return err
		}
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "audit feed worker context canceled")
			return ctx.Err()
		default:
		}

		published, err := s.publishBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "audit feed batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if published {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// publishBatch pushes one batch of unpublished entries and reports whether
// any entry went out. A publish failure stops the batch before the failing
// entry so the sequence stays contiguous.
func (s *Service) publishBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(started)) }()

	entries, err := s.repo.ListUnpublished(ctx, s.batchSize)
	if err != nil {
		return false, fmt.Errorf("list unpublished entries: %w", err)
	}
	if len(entries) == 0 {
		return false, nil
	}

	var publishedSeqs []int64
	var publishErr error
	for _, entry := range entries {
		if err := s.publishEntry(ctx, entry); err != nil {
			s.metrics.IncFailure()
			publishErr = fmt.Errorf("publish entry seq %d: %w", entry.Seq, err)
			break
		}
		s.metrics.IncPublished()
		publishedSeqs = append(publishedSeqs, entry.Seq)
	}

	if len(publishedSeqs) > 0 {
		if err := s.repo.MarkPublished(ctx, publishedSeqs); err != nil {
			return false, fmt.Errorf("mark published: %w", err)
		}
		last := publishedSeqs[len(publishedSeqs)-1]
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"published": len(publishedSeqs),
			"last_seq":  last,
		}), "audit entries published")
	}

	return len(publishedSeqs) > 0, publishErr
}

// feedEnvelope is the message body feed consumers receive.
type feedEnvelope struct {
	Seq        int64           `json:"seq"`
	EntryID    uuid.UUID       `json:"entry_id"`
	CompanyID  uuid.UUID       `json:"company_id"`
	ActorID    uuid.UUID       `json:"actor_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func (s *Service) publishEntry(ctx context.Context, entry models.AuditEntry) error {
	data, err := json.Marshal(feedEnvelope{
		Seq:        entry.Seq,
		EntryID:    entry.ID,
		CompanyID:  entry.CompanyID,
		ActorID:    entry.ActorID,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Before:     entry.Before,
		After:      entry.After,
		RecordedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"seq":         fmt.Sprintf("%d", entry.Seq),
			"entry_id":    entry.ID.String(),
			"company_id":  entry.CompanyID.String(),
			"action":      string(entry.Action),
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID.String(),
			"recorded_at": entry.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
