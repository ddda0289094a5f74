package main

import (
	"context"
	"strings"

	"deckhand/internal/api"
	"deckhand/internal/ipc"
	"deckhand/internal/queue"
)

// queueAPI is the queue surface shared by the IPC and direct-store paths so
// each command is written once.
type queueAPI interface {
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id string) (*api.Job, error)
	Submit(ctx context.Context, req api.SubmitRequest) (api.Job, error)
	Remove(ctx context.Context, id string) (bool, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// --- IPC adapter ---

type queueIPCAdapter struct {
	client *ipc.Client
}

func (a *queueIPCAdapter) List(_ context.Context, statuses []string) ([]api.Job, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *queueIPCAdapter) Describe(_ context.Context, id string) (*api.Job, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Item, nil
}

func (a *queueIPCAdapter) Submit(_ context.Context, req api.SubmitRequest) (api.Job, error) {
	resp, err := a.client.QueueAdd(ipc.QueueAddRequest{
		PrimarySource:        req.PrimarySource,
		AdditionalSources:    req.AdditionalSources,
		SourceURLs:           req.SourceURLs,
		CustomPrompt:         req.CustomPrompt,
		DeleteRemoteArtifact: req.DeleteRemoteArtifact,
	})
	if err != nil {
		return api.Job{}, err
	}
	return resp.Job, nil
}

func (a *queueIPCAdapter) Remove(_ context.Context, id string) (bool, error) {
	resp, err := a.client.QueueRemove(id)
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:      resp.Total,
		Pending:    resp.Pending,
		Processing: resp.Processing,
		Restoring:  resp.Restoring,
		Completed:  resp.Completed,
		Errored:    resp.Failed,
	}, nil
}

// --- direct store adapter ---

type queueStoreAdapter struct {
	store *queue.Store
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	parsed := make([]queue.Status, 0, len(statuses))
	for _, raw := range statuses {
		if status, ok := queue.ParseStatus(raw); ok {
			parsed = append(parsed, status)
		}
	}
	jobs, err := a.store.List(ctx, parsed...)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id string) (*api.Job, error) {
	job, err := a.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := api.FromJob(job)
	return &dto, nil
}

func (a *queueStoreAdapter) Submit(ctx context.Context, req api.SubmitRequest) (api.Job, error) {
	job := queue.NewJob(req.PrimarySource)
	job.AdditionalSources = req.AdditionalSources
	job.SourceURLs = req.SourceURLs
	job.CustomPrompt = strings.TrimSpace(req.CustomPrompt)
	job.DeleteRemoteArtifact = req.DeleteRemoteArtifact

	stored, err := a.store.Add(ctx, job)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(stored), nil
}

func (a *queueStoreAdapter) Remove(ctx context.Context, id string) (bool, error) {
	return a.store.Remove(ctx, id)
}

func (a *queueStoreAdapter) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *queueStoreAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *queueStoreAdapter) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}
