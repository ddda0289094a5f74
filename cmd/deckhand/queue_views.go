package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"deckhand/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.Job) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]api.Job, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			shortJobID(item.ID),
			documentTitle(item),
			formatStatusLabel(item.Status),
			formatDisplayTime(item.CreatedAt),
			formatJobDetail(item),
		})
	}
	return rows
}

// shortJobID keeps the first UUID group; enough to disambiguate a personal
// queue without drowning the table.
func shortJobID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func documentTitle(item api.Job) string {
	source := strings.TrimSpace(item.PrimarySource)
	if source == "" {
		return "Unknown"
	}
	return filepath.Base(source)
}

// formatJobDetail picks the most useful per-row annotation for the current
// status: the artifact for completed jobs, the failure for errored ones, and
// the remote workspace while work is in flight.
func formatJobDetail(item api.Job) string {
	switch item.Status {
	case "completed":
		if item.OutputPath != "" {
			return filepath.Base(item.OutputPath)
		}
	case "error":
		return truncateDetail(item.ErrorMessage, 48)
	case "processing", "restoring":
		if item.WorkspaceID != "" {
			return "notebook " + truncateDetail(item.WorkspaceID, 20)
		}
	}
	return ""
}

func truncateDetail(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

// formatRelativeTime renders "3 minutes ago" style ages for detail views.
func formatRelativeTime(value string) string {
	t := parseQueueTime(value)
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
