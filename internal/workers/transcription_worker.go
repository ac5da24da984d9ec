package workers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultStream = "interview:audio"
	DefaultGroup  = "transcribers"
)

// RedisQueue appends transcription jobs to a Redis stream.
type RedisQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *RedisQueue) Enqueue(ctx context.Context, job services.TranscriptionJob) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		Values: jobValues(job),
	}).Err()
}

func jobValues(job services.TranscriptionJob) map[string]any {
	return map[string]any{
		"session_id":  job.SessionID,
		"user_id":     job.UserID,
		"question_id": job.QuestionID,
		"object_name": job.ObjectName,
		"audio_url":   job.AudioURL,
		"language":    job.Language,
	}
}

func jobFromValues(values map[string]any) (services.TranscriptionJob, bool) {
	get := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	job := services.TranscriptionJob{
		SessionID:  get("session_id"),
		UserID:     get("user_id"),
		QuestionID: get("question_id"),
		ObjectName: get("object_name"),
		AudioURL:   get("audio_url"),
		Language:   get("language"),
	}
	return job, job.SessionID != "" && job.ObjectName != ""
}

// TranscriptionPool consumes the audio stream with a consumer group.
type TranscriptionPool struct {
	Redis      *redis.Client
	Audio      services.AudioService
	NumWorkers int
	Logger     *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	wg sync.WaitGroup
}

func (p *TranscriptionPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Audio == nil {
		return errors.New("TranscriptionPool missing dependency: Redis/Audio must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runConsumer(ctx, consumer)
		}()
	}
	return nil
}

// Wait blocks until every consumer returned after ctx was cancelled.
func (p *TranscriptionPool) Wait() { p.wg.Wait() }

func (p *TranscriptionPool) runConsumer(ctx context.Context, consumer string) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TranscriptionPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, ok := jobFromValues(msg.Values)
	if !ok {
		p.Logger.WithField("redis_id", msg.ID).Warn("drop malformed transcription job")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"session_id":  job.SessionID,
		"object_name": job.ObjectName,
	})

	jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	if err := p.Audio.Transcribe(jobCtx, job); err != nil {
		entry := log.WithError(err)
		if utils.IsCode(err, utils.CodeInvalidArgument) {
			entry.Warn("transcription produced no text")
			return
		}
		entry.Error("transcription failed")
		return
	}
	log.WithField("latency_ms", time.Since(start).Milliseconds()).Info("transcription done")
}
