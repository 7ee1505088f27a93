package outbox

import "context"

// Sender queues WhatsApp messages in the outbox instead of calling the
// gateway. The scheduler's dispatcher hands them to the worker.
type Sender struct {
	repo *Repository
}

func NewSender(repo *Repository) *Sender {
	return &Sender{repo: repo}
}

func (s *Sender) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	_, err := s.repo.Insert(ctx, InsertParams{Phone: phoneNumber, Body: message})
	return err
}
