package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const (
	savedPreview   = 100
	summaryPreview = 500
	listPreview    = 150
)

// MemoryStore is the subset of *memory.Store the memory command uses.
type MemoryStore interface {
	Create(ctx context.Context, content string) (store.Memory, error)
	SavePage(ctx context.Context, url string, content string) (memory.PageSave, error)
	SaveScreenshot(ctx context.Context, url string, screenshot string, title string) (memory.PageSave, error)
	Search(ctx context.Context, query string) (memory.SearchResult, error)
	List(ctx context.Context, limit int) (memory.Listing, error)
	Delete(ctx context.Context, id string) error
}

type MemoryHandler struct {
	store MemoryStore
}

func NewMemoryHandler(store MemoryStore) *MemoryHandler {
	return &MemoryHandler{store: store}
}

func (h *MemoryHandler) Command() string { return "memory" }

func (h *MemoryHandler) Description() string {
	return "Save, search and manage your local knowledge base"
}

func (h *MemoryHandler) Help(subcommand string) string {
	switch subcommand {
	case "save":
		return "📝 **Memory Save Command**\n\nUsage: `/memory save [content]`\n\nSaves information to your local knowledge base.\n\nExamples:\n• `/memory save API key for service X is ABC123`\n• `/memory save Meeting notes: Discussed project timeline...`\n"
	case "search":
		return "🔍 **Memory Search Command**\n\nUsage: `/memory search [query]`\n\nUses AI to search your knowledge base, falling back to a plain text match.\n\nExamples:\n• `/memory search API key`\n• `/memory search meeting notes`\n"
	case "list":
		return "📋 **Memory List Command**\n\nUsage: `/memory list [limit]`\n\nLists all memories or the most recent ones.\n\nExamples:\n• `/memory list` - Show all memories\n• `/memory list 10` - Show 10 most recent memories\n"
	case "delete":
		return "🗑️ **Memory Delete Command**\n\nUsage: `/memory delete [id]`\n\nDeletes a memory by its ID.\n\nExamples:\n• `/memory delete mem_20240112143022`\n"
	case "save_page":
		return "🌐 **Memory Save Page Command**\n\nUsage: `/memory save_page [url] [content]`\n\nSaves a web page with an AI-generated summary. The browser extension sends the page URL and its text; the summary is stored together with the URL.\n\nExamples:\n• `/memory save_page https://example.com Page content here...`\n"
	}
	return `💾 **Memory Command**

Store and retrieve information from your local knowledge base.

**Available subcommands:**
• ` + "`/memory save [content]`" + ` - Save new information
• ` + "`/memory save_page [url] [content]`" + ` - Save web page with AI summary
• ` + "`/memory search [query]`" + ` - AI-powered search through memories
• ` + "`/memory list [limit]`" + ` - List all or recent memories
• ` + "`/memory delete [id]`" + ` - Delete a memory by ID

💡 **Tips:**
• Anything after ` + "`/memory`" + ` that is not a subcommand is treated as a search
• Each memory has a unique ID and timestamp
`
}

func (h *MemoryHandler) Handle(ctx context.Context, args string) commands.Result {
	args = strings.TrimSpace(args)
	if args == "" {
		return commands.OK(h.Help(""), map[string]any{"command": "memory", "subcommand": "help"})
	}
	subcommand, rest := splitFirst(args)
	switch strings.ToLower(subcommand) {
	case "save":
		return h.save(ctx, rest)
	case "save_page":
		return h.savePage(ctx, rest)
	case "search":
		return h.search(ctx, rest)
	case "list":
		return h.list(ctx, rest)
	case "delete":
		return h.delete(ctx, rest)
	default:
		return h.search(ctx, args)
	}
}

func (h *MemoryHandler) save(ctx context.Context, content string) commands.Result {
	if content == "" {
		return commands.Fail("❌ No content provided to save.", "Please provide content after `/memory save`", nil)
	}
	mem, err := h.store.Create(ctx, content)
	if err != nil {
		return storeFailure("save", err)
	}
	return commands.OK(
		fmt.Sprintf("✅ **Memory Saved!**\n\nID: `%s`\nContent: %s", mem.ID, memory.Ellipsize(content, savedPreview)),
		map[string]any{"command": "memory", "subcommand": "save", "memory_id": mem.ID},
	)
}

func (h *MemoryHandler) savePage(ctx context.Context, args string) commands.Result {
	if args == "" {
		return commands.Fail("❌ No URL or content provided.", "Please provide URL and content: `/memory save_page [url] [content]`", nil)
	}
	url, content := splitFirst(args)
	if content == "" {
		return commands.Fail("❌ Missing content. Format: `/memory save_page [url] [content]`", "Both URL and content are required", nil)
	}
	return h.SavePage(ctx, url, content)
}

// SavePage stores page text under url. The API's text fallback calls it
// directly so page content is never parsed as a command.
func (h *MemoryHandler) SavePage(ctx context.Context, url string, content string) commands.Result {
	saved, err := h.store.SavePage(ctx, url, content)
	if err != nil {
		return storeFailure("save_page", err)
	}
	meta := map[string]any{
		"command":    "memory",
		"subcommand": "save_page",
		"memory_id":  saved.Memory.ID,
		"url":        url,
	}
	if saved.SummaryErr != nil {
		meta["error"] = saved.SummaryErr.Error()
		return commands.OK(
			fmt.Sprintf("✅ **Web Page Saved (without AI summary)!**\n\n**URL:** %s\n**ID:** `%s`\n\n*Note: AI summarization failed, saved content preview instead.*", url, saved.Memory.ID),
			meta,
		)
	}
	return commands.OK(
		fmt.Sprintf("✅ **Web Page Saved!**\n\n**URL:** %s\n**ID:** `%s`\n\n**Summary:**\n%s", url, saved.Memory.ID, memory.Ellipsize(saved.Summary, summaryPreview)),
		meta,
	)
}

// SaveScreenshot stores a page from its screenshot. It backs the save_page
// API endpoint rather than a slash command.
func (h *MemoryHandler) SaveScreenshot(ctx context.Context, url string, screenshot string, title string) commands.Result {
	saved, err := h.store.SaveScreenshot(ctx, url, screenshot, title)
	if err != nil {
		return storeFailure("save_page_image", err)
	}
	meta := map[string]any{
		"command":    "memory",
		"subcommand": "save_page_image",
		"memory_id":  saved.Memory.ID,
		"url":        saved.Memory.URL,
	}
	if saved.SummaryErr != nil {
		meta["error"] = saved.SummaryErr.Error()
		return commands.OK(
			fmt.Sprintf("✅ **Web Page Saved (without AI analysis)!**\n\n**URL:** %s\n**ID:** `%s`\n\n*Note: Screenshot analysis failed: %v*", saved.Memory.URL, saved.Memory.ID, saved.SummaryErr),
			meta,
		)
	}
	meta["method"] = "vision_analysis"
	meta["summary"] = saved.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **Web Page Saved from Screenshot!**\n\n**URL:** %s\n", saved.Memory.URL)
	if title != "" {
		fmt.Fprintf(&b, "**Title:** %s\n", title)
	}
	fmt.Fprintf(&b, "**ID:** `%s`\n\n**Visual Summary:**\n%s", saved.Memory.ID, memory.Ellipsize(saved.Summary, summaryPreview))
	return commands.OK(b.String(), meta)
}

func (h *MemoryHandler) search(ctx context.Context, query string) commands.Result {
	if query == "" {
		return commands.Fail("❌ No search query provided.", "Please provide a search term after `/memory search`", nil)
	}
	result, err := h.store.Search(ctx, query)
	if err != nil {
		return storeFailure("search", err)
	}
	meta := map[string]any{"command": "memory", "subcommand": "search", "query": query}
	switch result.Method {
	case memory.SearchMethodAI:
		meta["method"] = result.Method
	case memory.SearchMethodFallback:
		if result.Matches > 0 {
			meta["method"] = result.Method
			meta["results_count"] = result.Matches
		}
	}
	return commands.OK(result.Answer, meta)
}

func (h *MemoryHandler) list(ctx context.Context, rawLimit string) commands.Result {
	limit := 0
	if parsed, err := strconv.Atoi(strings.TrimSpace(rawLimit)); err == nil && parsed > 0 {
		limit = parsed
	}
	listing, err := h.store.List(ctx, limit)
	if err != nil {
		return storeFailure("list", err)
	}
	if listing.Total == 0 {
		return commands.OK("📭 No memories stored yet. Start saving some with `/memory save`!",
			map[string]any{"command": "memory", "subcommand": "list"})
	}

	var b strings.Builder
	b.WriteString("📋 **Stored Memories**\n\n")
	noun := "memories"
	if listing.Total == 1 {
		noun = "memory"
	}
	fmt.Fprintf(&b, "Total: %d %s", listing.Total, noun)
	if limit > 0 && limit < listing.Total {
		fmt.Fprintf(&b, " (showing %d most recent)", limit)
	}
	b.WriteString("\n\n")
	for _, mem := range listing.Memories {
		fmt.Fprintf(&b, "**ID:** `%s`\n**Date:** %s\n**Content:** %s\n---\n", mem.ID, mem.CreatedAt, memory.Ellipsize(mem.Content, listPreview))
	}
	return commands.OK(b.String(), map[string]any{
		"command":         "memory",
		"subcommand":      "list",
		"total_count":     listing.Total,
		"displayed_count": len(listing.Memories),
	})
}

func (h *MemoryHandler) delete(ctx context.Context, id string) commands.Result {
	if id == "" {
		return commands.Fail("❌ No memory ID provided.", "Please provide a memory ID to delete", nil)
	}
	err := h.store.Delete(ctx, id)
	if errors.Is(err, memory.ErrNotFound) {
		return commands.Fail(fmt.Sprintf("❌ Memory with ID `%s` not found.", id), "Memory not found",
			map[string]any{"command": "memory", "subcommand": "delete"})
	}
	if err != nil {
		return storeFailure("delete", err)
	}
	return commands.OK(fmt.Sprintf("✅ Memory `%s` deleted successfully.", id),
		map[string]any{"command": "memory", "subcommand": "delete", "deleted_id": id})
}

func storeFailure(subcommand string, err error) commands.Result {
	return commands.Fail(fmt.Sprintf("❌ Memory %s failed: %v", subcommand, err), err.Error(),
		map[string]any{"command": "memory", "subcommand": subcommand})
}

// splitFirst splits s on its first run of whitespace.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
