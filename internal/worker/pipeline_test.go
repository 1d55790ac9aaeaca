package worker_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/regexrelay/internal/broker"
	"github.com/kiranshivaraju/regexrelay/internal/jobs"
	"github.com/kiranshivaraju/regexrelay/internal/notify"
	"github.com/kiranshivaraju/regexrelay/internal/worker"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus joins the publisher and consumer sides of the fake broker so the
// whole intake-to-observer path can run in process.
type fakeBus struct {
	*fakeConsumer
}

func (b *fakeBus) Publish(_ context.Context, body []byte) error {
	b.msgs <- &broker.Message{ID: uuid.NewString(), Body: body}
	return nil
}

var _ broker.Publisher = (*fakeBus)(nil)

// startPipeline wires intake, broker, worker, store, and broadcaster together.
func startPipeline(t *testing.T) (*jobs.Service, *pipeline) {
	t.Helper()

	p := &pipeline{
		store:    newMemStore(),
		consumer: newFakeConsumer(),
		notifier: notify.NewBroadcaster(),
	}
	p.sub = p.notifier.Subscribe()

	bus := &fakeBus{fakeConsumer: p.consumer}
	svc := jobs.NewService(p.store, bus, p.notifier, "^[a-zA-Z0-9]+$")

	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(p.consumer, p.store, p.notifier)
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Wait()
	})

	return svc, p
}

func TestPipeline_ValidInput_ObserverSeesBothStates(t *testing.T) {
	svc, p := startPipeline(t)

	job, err := svc.Create(context.Background(), "hello123", "^[a-zA-Z0-9]+$")
	require.NoError(t, err)

	first := p.nextEvent(t)
	assert.Equal(t, job.ID, first.ID)
	assert.Equal(t, models.JobStatusValidating, first.Status)

	second := p.nextEvent(t)
	assert.Equal(t, job.ID, second.ID)
	assert.Equal(t, models.JobStatusValid, second.Status)
}

func TestPipeline_InvalidInput_TerminalInvalid(t *testing.T) {
	svc, p := startPipeline(t)

	job, err := svc.Create(context.Background(), "hello world!", "^[a-zA-Z0-9]+$")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusValidating, p.nextEvent(t).Status)
	assert.Equal(t, models.JobStatusInvalid, p.nextEvent(t).Status)

	stored, err := p.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInvalid, stored.Status)
}

func TestPipeline_DefaultPatternApplied(t *testing.T) {
	svc, p := startPipeline(t)

	job, err := svc.Create(context.Background(), "hello123", "")
	require.NoError(t, err)
	assert.Equal(t, "^[a-zA-Z0-9]+$", job.Pattern)

	p.nextEvent(t)
	assert.Equal(t, models.JobStatusValid, p.nextEvent(t).Status)
}
