// Package enrollment turns queued enrollment photos into stored face templates.
package enrollment

import (
	"context"
	"strings"

	"smartattendance/internal/apperr"
	"smartattendance/internal/queue"
)

// JobType is the queue message type of a face enrollment job.
const JobType = "enroll_face"

// FaceJob asks the worker to embed a photo and enroll it for a user.
// Exactly one of ImageURL and ImageB64 is set.
type FaceJob struct {
	UserUUID string `json:"user_uuid"`
	ImageURL string `json:"image_url,omitempty"`
	ImageB64 string `json:"image_b64,omitempty"`
}

func (j FaceJob) validate() error {
	if strings.TrimSpace(j.UserUUID) == "" {
		return apperr.Validation("user_uuid is required")
	}
	if (j.ImageURL == "") == (j.ImageB64 == "") {
		return apperr.Validation("exactly one of image_url or image data is required")
	}
	return nil
}

// Submit validates job and publishes it. The returned message ID identifies
// the job to the caller.
func Submit(ctx context.Context, q queue.Queue, job FaceJob) (string, error) {
	if err := job.validate(); err != nil {
		return "", err
	}
	msg, err := queue.NewMessage(JobType, job)
	if err != nil {
		return "", err
	}
	if err := q.Publish(ctx, msg); err != nil {
		return "", apperr.Persistence("enqueue enrollment", err)
	}
	return msg.ID, nil
}
