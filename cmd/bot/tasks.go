package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/services/storage"
)

// usersGauge is the metric updated by the directory report
type usersGauge interface {
	SetRegisteredUsers(count int)
}

// startPeriodicTasks schedules the user directory report. The caller stops the returned cron.
func startPeriodicTasks(schedule string, dir storage.Directory, metrics usersGauge, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		reportUsers(context.Background(), dir, metrics, log)
	}); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

func reportUsers(ctx context.Context, dir storage.Directory, metrics usersGauge, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users, err := dir.GetAll(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to read user directory")
		return
	}

	metrics.SetRegisteredUsers(len(users))
	log.WithField("users", len(users)).Info("User directory report")
}
