package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/browsercontext"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/transcript"
)

const tabReference = "@tab"

type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

// ChatHandler is the default handler for input without a command marker.
type ChatHandler struct {
	replier     Replier
	transcripts transcript.Fetcher
	logger      *zap.Logger
}

// NewChatHandler builds the chat handler. transcripts may be nil, in which
// case @tab on a YouTube page falls back to the page title and URL.
func NewChatHandler(replier Replier, transcripts transcript.Fetcher, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{replier: replier, transcripts: transcripts, logger: logger}
}

func (h *ChatHandler) Command() string { return commands.ChatCommand }

func (h *ChatHandler) Description() string { return "Have a conversation with an AI assistant" }

func (h *ChatHandler) Help(string) string {
	return `💬 **Chat Command**

Have a natural conversation with an AI assistant.

**Usage:**
- ` + "`/chat [your message]`" + ` - chat explicitly
- ` + "`[your message]`" + ` - anything without a slash goes to chat

**Examples:**
- ` + "`What is quantum computing?`" + `
- ` + "`/chat Tell me a joke`" + `

**Special Features:**
- Use ` + "`@tab`" + ` to reference the current browser tab
- YouTube transcripts are pulled in automatically when ` + "`@tab`" + ` is a video
`
}

func (h *ChatHandler) Handle(ctx context.Context, args string) commands.Result {
	return h.HandleWithContext(ctx, args, nil)
}

func (h *ChatHandler) HandleWithContext(ctx context.Context, args string, page *browsercontext.Context) commands.Result {
	if strings.TrimSpace(args) == "" {
		return commands.Fail("Please provide a message to chat about.", "Empty message", nil)
	}

	message := h.expandTabReference(ctx, args, page)
	reply, err := h.replier.Reply(ctx, message)
	if err != nil {
		return commands.Fail(fmt.Sprintf("Chat error: %v", err), err.Error(), nil)
	}
	return commands.OK(reply, map[string]any{"type": "chat", "query": args})
}

// expandTabReference replaces @tab with the transcript of the YouTube video
// open in the current tab. Other pages leave the message untouched.
func (h *ChatHandler) expandTabReference(ctx context.Context, message string, page *browsercontext.Context) string {
	if !strings.Contains(strings.ToLower(message), tabReference) {
		return message
	}
	if page == nil || page.URL == "" || !transcript.IsYouTubeURL(page.URL) {
		return message
	}

	if h.transcripts != nil {
		tr, err := h.transcripts.Fetch(ctx, page.URL)
		if err == nil {
			h.logger.Debug("expanded @tab with transcript", zap.String("url", page.URL), zap.Int("chars", len(tr.Text)))
			return strings.ReplaceAll(message, tabReference, "this YouTube video:\n\n"+tr.ChatBlock())
		}
		h.logger.Warn("youtube transcript unavailable", zap.String("url", page.URL), zap.Error(err))
	}

	title := page.Title
	if title == "" {
		title = "YouTube video"
	}
	return strings.ReplaceAll(message, tabReference, fmt.Sprintf("this YouTube video: %s (%s)", title, page.URL))
}
