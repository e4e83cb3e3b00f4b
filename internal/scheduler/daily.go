package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/repository"
)

// BirthdayGreeter runs once a day at a fixed hour and emails every client
// whose birthday falls on the current date. The match is on month and day
// only, so the birth year is irrelevant.
type BirthdayGreeter struct {
	clients  repository.ClientRepository
	email    EmailEnqueuer
	mailFrom string
	hour     int
	now      func() time.Time
	logger   *zap.Logger
}

func NewBirthdayGreeter(
	clients repository.ClientRepository,
	email EmailEnqueuer,
	mailFrom string,
	hour int,
	logger *zap.Logger,
) *BirthdayGreeter {
	return &BirthdayGreeter{
		clients:  clients,
		email:    email,
		mailFrom: mailFrom,
		hour:     hour,
		now:      time.Now,
		logger:   logger,
	}
}

// Run fires at the configured hour every day until ctx is cancelled.
func (g *BirthdayGreeter) Run(ctx context.Context) {
	g.logger.Info("birthday greeter started", zap.Int("hour", g.hour))

	for {
		wait := g.untilNextRun()
		select {
		case <-ctx.Done():
			g.logger.Info("birthday greeter stopping")
			return
		case <-time.After(wait):
			g.greet(ctx)
		}
	}
}

// untilNextRun computes the delay until the next occurrence of the
// configured hour, today or tomorrow.
func (g *BirthdayGreeter) untilNextRun() time.Duration {
	now := g.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), g.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (g *BirthdayGreeter) greet(ctx context.Context) {
	now := g.now()
	clients, err := g.clients.FindWithBirthdayOn(ctx, now.Month(), now.Day())
	if err != nil {
		g.logger.Error("birthday lookup failed", zap.Error(err))
		return
	}

	for _, c := range clients {
		msg := birthdayEmail(c.Email, c.FirstName, g.mailFrom)
		if err := g.email.Send(ctx, msg); err != nil {
			g.logger.Warn("could not enqueue birthday email",
				zap.String("client_id", c.ID), zap.Error(err))
		}
	}

	if len(clients) > 0 {
		g.logger.Info("birthday greetings enqueued", zap.Int("count", len(clients)))
	}
}

func birthdayEmail(to, firstName, from string) domain.EmailMessage {
	return domain.EmailMessage{
		To:      to,
		From:    from,
		Subject: fmt.Sprintf("Happy birthday, %s!", firstName),
		HTML: fmt.Sprintf(
			"<p>Happy birthday, %s! All of us wish you a wonderful year ahead.</p>",
			firstName),
	}
}
