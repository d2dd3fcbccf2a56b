package jobqueue

import (
	"fmt"

	"github.com/ManuelReschke/PayFox/internal/pkg/mail"
)

// processEmailJob sends one notification email. Delivery failures are
// returned so the queue's retry logic takes over; the webhook pipeline that
// enqueued the job has long since responded.
func (q *Queue) processEmailJob(job *Job) error {
	payload, err := EmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email job payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("email job %s has no recipient", job.ID)
	}
	return mail.SendMail(payload.To, payload.Subject, payload.Body)
}
