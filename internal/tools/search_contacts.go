package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngocminh-dev/wareply/internal/bridge"
)

// SearchContactsTool looks up contacts through the bridge.
type SearchContactsTool struct {
	bridge *bridge.Client
}

func NewSearchContactsTool(b *bridge.Client) *SearchContactsTool {
	return &SearchContactsTool{bridge: b}
}

func (t *SearchContactsTool) Name() string { return "search_contacts" }

func (t *SearchContactsTool) Description() string {
	return "Search WhatsApp contacts by name or phone number fragment."
}

func (t *SearchContactsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Name or phone number to search for",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchContactsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return ErrorResult("query is required")
	}

	contacts, err := t.bridge.SearchContacts(ctx, query)
	if err != nil {
		return ErrorResult(fmt.Sprintf("contact search failed: %v", err)).WithError(err)
	}
	if len(contacts) == 0 {
		return NewResult(fmt.Sprintf("No contacts found for %q", query))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d contact(s):\n", len(contacts))
	for _, c := range contacts {
		fmt.Fprintf(&sb, "- %s (%s, JID: %s)\n", c.Name, c.Phone, c.JID)
	}
	return NewResult(sb.String())
}
