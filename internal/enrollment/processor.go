package enrollment

import (
	"context"
	"errors"
	"fmt"

	"smartattendance/internal/biometric"
	"smartattendance/internal/faceclient"
	"smartattendance/internal/logging"
	"smartattendance/internal/metrics"
	"smartattendance/internal/queue"
	"smartattendance/internal/users"
)

type (
	UserLookup interface {
		UserByUUID(ctx context.Context, id string) (users.Person, error)
	}
	Embedder interface {
		EmbedWithScore(ctx context.Context, img faceclient.Image) (*faceclient.EmbedResult, error)
	}
	TemplateWriter interface {
		Enroll(ctx context.Context, userID int64, face biometric.FaceVector, fingerprint []byte) (biometric.Template, error)
	}
)

// Processor handles FaceJob messages.
type Processor struct {
	users     UserLookup
	face      Embedder
	templates TemplateWriter
	log       logging.Logger
}

func NewProcessor(u UserLookup, face Embedder, templates TemplateWriter, log logging.Logger) *Processor {
	if log == nil {
		log = logging.Discard()
	}
	return &Processor{users: u, face: face, templates: templates, log: log.With("component", "enrollment")}
}

// Handle processes one message. Messages of other types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) (biometric.Template, error) {
	if msg.Type != JobType {
		return biometric.Template{}, nil
	}

	var job FaceJob
	if err := msg.Decode(&job); err != nil {
		return biometric.Template{}, err
	}
	if err := job.validate(); err != nil {
		return biometric.Template{}, err
	}

	person, err := p.users.UserByUUID(ctx, job.UserUUID)
	if err != nil {
		return biometric.Template{}, fmt.Errorf("lookup %s: %w", job.UserUUID, err)
	}

	res, err := p.face.EmbedWithScore(ctx, faceclient.Image{URL: job.ImageURL, Base64: job.ImageB64})
	if err != nil {
		return biometric.Template{}, fmt.Errorf("embed: %w", err)
	}
	p.log.Info(ctx, "face embedded", "faces", res.FacesDetected, "score", res.Score)

	tpl, err := p.templates.Enroll(ctx, person.ID, biometric.FaceVector(res.Embedding), nil)
	if err != nil {
		return biometric.Template{}, fmt.Errorf("store template: %w", err)
	}
	return tpl, nil
}

// Run consumes q until ctx is canceled or the channel closes. Failed jobs are
// logged and counted; they are not retried.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}

	for msg := range messages {
		jobCtx := logging.ContextWith(ctx, "job_id", msg.ID)
		if msg.Type != JobType {
			p.log.Warn(jobCtx, "unknown message type", "type", msg.Type)
			continue
		}
		tpl, err := p.Handle(jobCtx, msg)
		if err != nil {
			result := "failed"
			if errors.Is(err, faceclient.ErrNoFace) || errors.Is(err, faceclient.ErrMultipleFaces) {
				result = "rejected"
			}
			metrics.EnrollJobs.WithLabelValues(result).Inc()
			p.log.Error(jobCtx, "enrollment job failed", "err", err)
			continue
		}
		metrics.EnrollJobs.WithLabelValues("enrolled").Inc()
		p.log.Info(jobCtx, "template enrolled", "template_id", tpl.ID, "user_id", tpl.Owner.UserID)
	}
	return ctx.Err()
}
