package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// NotificationMessage is the fixed body sent to investors when a pitch they
// backed is edited.
const NotificationMessage = "A project you voted for or pledged to has updated its pitch. Take a look at what changed."

// Dispatcher delivers a single notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// StoreDispatcher hands notifications to the delivery service by writing
// them to the notifications collection.
type StoreDispatcher struct {
	Store RecordStore
}

func (d StoreDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	return d.Store.Append(ctx, NotificationsCollection, n)
}

// FanoutResult summarises one notification run.
type FanoutResult struct {
	Recipients []string
	Sent       int
	Failed     int
}

// Notifier tells investors about changes to projects they backed.
type Notifier struct {
	store       RecordStore
	dispatcher  Dispatcher
	concurrency int
	now         func() time.Time
}

// NewNotifier returns a notifier reading votes and pledges from store.
func NewNotifier(store RecordStore, dispatcher Dispatcher, concurrency int) *Notifier {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Notifier{store: store, dispatcher: dispatcher, concurrency: concurrency, now: time.Now}
}

// RecipientsFor returns everyone who voted for or pledged to the project,
// voters first, each id once.
func (n *Notifier) RecipientsFor(ctx context.Context, projectID string) ([]string, error) {
	seen := make(map[string]struct{})
	var recipients []string
	for _, collection := range []string{VotesCollection, PledgesCollection} {
		ids, err := n.store.InvestorIDs(ctx, collection, projectID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			recipients = append(recipients, id)
		}
	}
	return recipients, nil
}

// Notify dispatches one notification per recipient concurrently. A failed
// dispatch is logged and counted; it never stops the others.
func (n *Notifier) Notify(ctx context.Context, projectID, projectName string) (FanoutResult, error) {
	logCtx := slog.With("projectId", projectID)
	recipients, err := n.RecipientsFor(ctx, projectID)
	if err != nil {
		return FanoutResult{}, fmt.Errorf("failed to resolve recipients: %w", err)
	}
	res := FanoutResult{Recipients: recipients}
	if len(recipients) == 0 {
		logCtx.Info("No investors to notify.")
		return res, nil
	}

	var eg errgroup.Group
	eg.SetLimit(n.concurrency)
	var sent, failed atomic.Int64
	for _, userID := range recipients {
		msg := BuildNotification(projectID, projectName, userID, n.now())
		eg.Go(func() error {
			if err := n.dispatcher.Dispatch(ctx, msg); err != nil {
				failed.Add(1)
				logCtx.Warn("Notification dispatch failed", "userId", msg.UserID, "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	res.Sent = int(sent.Load())
	res.Failed = int(failed.Load())
	logCtx.Info("Notification fan-out complete.", "recipients", len(recipients), "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// BuildNotification returns the payload sent to one investor.
func BuildNotification(projectID, projectName, userID string, at time.Time) models.Notification {
	title := "A project you follow was updated"
	if projectName != "" {
		title = fmt.Sprintf("%s updated its pitch", projectName)
	}
	return models.Notification{
		Title:     title,
		Message:   NotificationMessage,
		UserID:    userID,
		Action:    "/projects/" + projectID,
		ProjectID: projectID,
		CreatedAt: at,
	}
}
