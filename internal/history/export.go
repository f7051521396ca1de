package history

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Memphis465/nova/internal/models"
)

// ExportFormat represents the format for exporting history
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
	// ExportFormatRaw writes the server's export payload unchanged
	ExportFormatRaw ExportFormat = "raw"
)

// ParseExportFormat resolves a user supplied format name
func ParseExportFormat(name string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "raw":
		return ExportFormatRaw, nil
	case "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use raw, json or markdown)", name)
	}
}

// Extension returns the file extension used for the format
func (f ExportFormat) Extension() string {
	if f == ExportFormatMarkdown {
		return ".md"
	}
	return ".json"
}

// ExportToMarkdown renders history entries as a Markdown transcript
func ExportToMarkdown(title string, entries []models.HistoryEntry) string {
	var sb strings.Builder

	// Header
	if title == "" {
		title = "Nova conversation"
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(entries)))
	sb.WriteString("\n\n---\n\n")

	for i, entry := range entries {
		sb.WriteString("## ")
		sb.WriteString(roleHeading(entry.Role))
		if entry.Type != "" && entry.Type != "text" {
			sb.WriteString(" (")
			sb.WriteString(entry.Type)
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(entry.Message)
		sb.WriteString("\n")

		// Separator between messages (except last)
		if i < len(entries)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportToJSON renders history entries as indented JSON
func ExportToJSON(entries []models.HistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return json.MarshalIndent(models.HistoryResponse{History: entries}, "", "  ")
}

func roleHeading(role string) string {
	switch role {
	case string(models.RoleUser):
		return "User"
	case string(models.RoleAssistant), "nova":
		return "Nova"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(role[:1]) + role[1:]
	}
}
