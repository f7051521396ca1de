package history

import (
	"strings"

	"github.com/Memphis465/nova/internal/models"
)

// SearchResult is a history entry matching a query
type SearchResult struct {
	Index   int
	Entry   models.HistoryEntry
	Snippet string
}

// Search returns the entries whose message contains query, case-insensitively
func Search(entries []models.HistoryEntry, query string, snippetLen int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var results []SearchResult
	for i, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Message), strings.ToLower(query)) {
			results = append(results, SearchResult{
				Index:   i,
				Entry:   entry,
				Snippet: extractSnippet(entry.Message, query, snippetLen),
			})
		}
	}
	return results
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}

	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		return content[:maxLen] + "..."
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}
