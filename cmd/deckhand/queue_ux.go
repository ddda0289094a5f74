package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deckhand/internal/queue"
)

var errJobNotFound = errors.New("no matching queue item")

// resolveJobID expands a possibly shortened job ID to the full identifier.
// An exact hit wins; otherwise a prefix that matches exactly one queued job
// is accepted, so IDs can be pasted straight from the list table.
func resolveJobID(ctx context.Context, q queueAPI, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("job id is required")
	}

	item, err := q.Describe(ctx, raw)
	if err != nil {
		return "", err
	}
	if item != nil {
		return item.ID, nil
	}

	items, err := q.List(ctx, nil)
	if err != nil {
		return "", err
	}
	matches := make([]string, 0, 1)
	for _, candidate := range items {
		if strings.HasPrefix(candidate.ID, raw) {
			matches = append(matches, candidate.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errJobNotFound
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("job id %s is ambiguous (%d matches)", raw, len(matches))
	}
}

// validateStatuses rejects unknown status filters before anything touches
// the daemon or the snapshot.
func validateStatuses(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	cleaned := make([]string, 0, len(raw))
	for _, value := range raw {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := queue.ParseStatus(value); !ok {
			return nil, fmt.Errorf("unknown status %q (valid: %s)", value, strings.Join(knownStatuses(), ", "))
		}
		cleaned = append(cleaned, value)
	}
	return cleaned, nil
}

func knownStatuses() []string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return names
}
