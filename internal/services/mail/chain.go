package mail

import (
	"context"
	"log"
)

// Attempt records one provider's outcome.
type Attempt struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind,omitempty"`
	Err      error     `json:"-"`
}

// Report describes a delivery through the chain.
type Report struct {
	Delivered bool      `json:"delivered"`
	Provider  string    `json:"provider,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Attempts  []Attempt `json:"attempts"`
}

// Chain tries its providers in order until one delivers. There is no retry
// within a provider and no backoff between them.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain over providers in the given order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Deliver sends msg through the first provider that accepts it.
func (c *Chain) Deliver(ctx context.Context, msg Message) Report {
	report := Report{Attempts: make([]Attempt, 0, len(c.providers))}

	if err := msg.Validate(); err != nil {
		log.Printf("[Mail] rejected message to %q: %v", msg.To, err)
		report.Attempts = append(report.Attempts, Attempt{Kind: KindOf(err), Err: err})
		return report
	}

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			report.Attempts = append(report.Attempts, Attempt{Provider: p.Name(), Kind: KindNetwork, Err: err})
			break
		}

		id, err := p.Send(ctx, msg)
		if err != nil {
			log.Printf("[Mail] %s failed for %s: %v", p.Name(), msg.To, err)
			report.Attempts = append(report.Attempts, Attempt{Provider: p.Name(), Kind: KindOf(err), Err: err})
			continue
		}

		report.Attempts = append(report.Attempts, Attempt{Provider: p.Name()})
		report.Delivered = true
		report.Provider = p.Name()
		report.MessageID = id
		log.Printf("[Mail] delivered %q to %s via %s", msg.Subject, msg.To, p.Name())
		return report
	}

	log.Printf("[Mail] all providers failed for %s", msg.To)
	return report
}

// Send is the boolean form of Deliver.
func (c *Chain) Send(ctx context.Context, to, subject, html string) bool {
	return c.Deliver(ctx, Message{To: to, Subject: subject, HTML: html}).Delivered
}
