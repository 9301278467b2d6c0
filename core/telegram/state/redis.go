package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/metrics"
)

const redisOpTimeout = 2 * time.Second

// RedisOptions configures NewRedisManager.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration
}

type redisManager struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisManager stores one JSON document per user under prefix+user_id.
// Every write refreshes the TTL.
func NewRedisManager(client redis.Cmdable, opts RedisOptions) Manager {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "telecopter:fsm:"
	}
	return &redisManager{client: client, prefix: prefix, ttl: opts.TTL}
}

func (m *redisManager) key(userID int64) string {
	return m.prefix + strconv.FormatInt(userID, 10)
}

func (m *redisManager) fail(op string, userID int64, err error) {
	metrics.StateErrors.WithLabelValues(op).Inc()
	logger.Warn(context.Background(), "state.redis", "state."+op,
		slog.String("status", "fail"),
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
}

func (m *redisManager) load(userID int64) (*Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := m.client.Get(ctx, m.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		m.fail("get", userID, err)
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		m.fail("decode", userID, err)
		return nil, false
	}
	if sess.Scratch == nil {
		sess.Scratch = map[string]string{}
	}
	return &sess, true
}

func (m *redisManager) store(userID int64, sess *Session) {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		m.fail("encode", userID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := m.client.Set(ctx, m.key(userID), raw, m.ttl).Err(); err != nil {
		m.fail("set", userID, err)
	}
}

func (m *redisManager) GetStep(userID int64) Step {
	if sess, ok := m.load(userID); ok {
		return sess.Step
	}
	return StepIdle
}

func (m *redisManager) SetStep(userID int64, step Step, scratch map[string]string) {
	sc := maps.Clone(scratch)
	if sc == nil {
		sc = map[string]string{}
	}
	m.store(userID, &Session{Step: step, Scratch: sc})
}

func (m *redisManager) Scratch(userID int64) map[string]string {
	sess, _ := m.load(userID)
	return sess.clone().Scratch
}

func (m *redisManager) SetTemp(userID int64, key, value string) {
	sess, ok := m.load(userID)
	if !ok {
		sess = &Session{Step: StepIdle, Scratch: map[string]string{}}
	}
	sess.Scratch[key] = value
	m.store(userID, sess)
}

func (m *redisManager) GetTemp(userID int64, key string) (string, bool) {
	sess, ok := m.load(userID)
	if !ok {
		return "", false
	}
	v, ok := sess.Scratch[key]
	return v, ok
}

func (m *redisManager) ClearTemp(userID int64, key string) {
	sess, ok := m.load(userID)
	if !ok {
		return
	}
	if _, had := sess.Scratch[key]; !had {
		return
	}
	delete(sess.Scratch, key)
	m.store(userID, sess)
}

func (m *redisManager) Clear(userID int64) bool {
	sess, ok := m.load(userID)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := m.client.Del(ctx, m.key(userID)).Err(); err != nil {
		m.fail("del", userID, err)
	}
	return ok && sess.Step != StepIdle
}

func (m *redisManager) InProgress(userID int64) bool {
	return m.GetStep(userID) != StepIdle
}
