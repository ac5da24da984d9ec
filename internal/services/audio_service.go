package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/metrics"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/stt"
	"github.com/applymint/applymint/internal/storage"
	"github.com/applymint/applymint/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TranscriptionJob is one uploaded answer clip waiting for speech-to-text.
type TranscriptionJob struct {
	SessionID  string
	UserID     string
	QuestionID string
	ObjectName string
	AudioURL   string
	Language   string
}

var errNoTranscript = errors.New("empty transcript")

type JobQueue interface {
	Enqueue(ctx context.Context, job TranscriptionJob) error
}

type AudioUpload struct {
	SessionID   string
	QuestionID  string
	Filename    string
	ContentType string
	Size        int64
	Language    string
	Body        io.Reader
}

type AudioUploadResult struct {
	AudioURL   string `json:"audioUrl"`
	ObjectName string `json:"objectName"`
	Queued     bool   `json:"transcriptionQueued"`
}

type AudioService interface {
	Upload(ctx context.Context, caller models.Caller, in AudioUpload) (*AudioUploadResult, error)
	// Transcribe runs one job to completion. Called by the worker pool.
	Transcribe(ctx context.Context, job TranscriptionJob) error
}

type audioService struct {
	store     storage.Store
	queue     JobQueue
	stt       stt.Provider
	sessions  SessionService
	questions QuestionService
	messages  MessageService
	broker    events.Broker
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

type AudioDeps struct {
	Store     storage.Store
	Queue     JobQueue
	STT       stt.Provider
	Sessions  SessionService
	Questions QuestionService
	Messages  MessageService
	Broker    events.Broker
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
}

func NewAudioService(d AudioDeps) AudioService {
	if d.Broker == nil {
		d.Broker = events.NewMemoryBroker()
	}
	return &audioService{
		store:     d.Store,
		queue:     d.Queue,
		stt:       d.STT,
		sessions:  d.Sessions,
		questions: d.Questions,
		messages:  d.Messages,
		broker:    d.Broker,
		metrics:   d.Metrics,
		log:       d.Logger,
	}
}

func (s *audioService) Upload(ctx context.Context, caller models.Caller, in AudioUpload) (*AudioUploadResult, error) {
	const op = "AudioService.Upload"

	if s.store == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "audio storage not configured", nil)
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file must be audio", nil)
	}
	if in.Size <= 0 || in.Size > storage.MaxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file must be between 1 byte and 10MB", nil)
	}

	sess, err := s.sessions.GetOwned(ctx, caller, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, utils.E(utils.CodeConflict, op, "session is closed", nil)
	}
	if in.QuestionID != "" {
		q, err := s.questions.Get(ctx, in.QuestionID)
		if err != nil {
			return nil, err
		}
		if q.SessionID != sess.ID {
			return nil, utils.E(utils.CodeNotFound, op, "question not found", nil)
		}
	}

	objectName := fmt.Sprintf("interview/%s/%s/%s%s", caller.ID, sess.ID, uuid.NewString(), audioExt(in.Filename, mediaType))
	url, err := s.store.Upload(ctx, objectName, mediaType, in.Body)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store audio", err)
	}

	out := &AudioUploadResult{AudioURL: url, ObjectName: objectName}
	if s.queue == nil || s.stt == nil {
		return out, nil
	}
	err = s.queue.Enqueue(ctx, TranscriptionJob{
		SessionID:  sess.ID,
		UserID:     caller.ID,
		QuestionID: in.QuestionID,
		ObjectName: objectName,
		AudioURL:   url,
		Language:   in.Language,
	})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to queue transcription", err)
	}
	out.Queued = true
	return out, nil
}

func (s *audioService) Transcribe(ctx context.Context, job TranscriptionJob) error {
	const op = "AudioService.Transcribe"

	if s.store == nil || s.stt == nil {
		return utils.E(utils.CodeUnavailable, op, "transcription not configured", nil)
	}

	rc, err := s.store.Open(ctx, job.ObjectName)
	if err != nil {
		s.metrics.Transcription("error")
		return utils.E(utils.CodeInternal, op, "failed to open audio", err)
	}
	audio, err := io.ReadAll(io.LimitReader(rc, storage.MaxAudioBytes))
	_ = rc.Close()
	if err != nil {
		s.metrics.Transcription("error")
		return utils.E(utils.CodeInternal, op, "failed to read audio", err)
	}

	tr, err := s.stt.Transcribe(ctx, audio, job.Language)
	if err != nil {
		s.metrics.Transcription("error")
		return utils.Upstream(op, "speech recognition failed", 0, err)
	}
	if strings.TrimSpace(tr.Text) == "" {
		s.metrics.Transcription("empty")
		return utils.E(utils.CodeInvalidArgument, op, "no speech recognized", errNoTranscript)
	}

	msg := &models.InterviewMessage{
		SessionID:     job.SessionID,
		Type:          models.MessageUser,
		Content:       tr.Text,
		AudioURL:      optional(job.AudioURL),
		Transcription: optional(tr.Text),
		QuestionID:    optional(job.QuestionID),
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		s.metrics.Transcription("error")
		return err
	}

	s.metrics.Transcription("ok")
	if err := s.broker.Publish(ctx, job.SessionID, EventTranscription, map[string]any{
		"questionId":    job.QuestionID,
		"audioUrl":      job.AudioURL,
		"transcription": tr.Text,
		"confidence":    tr.Confidence,
		"language":      tr.Language,
		"messageIndex":  msg.MessageIndex,
	}); err != nil {
		s.log.WithError(err).WithField("session_id", job.SessionID).Warn("publish transcription event failed")
	}
	return nil
}

func audioExt(filename, mediaType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
