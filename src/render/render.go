// Package render turns conversations and messages into terminal text.
package render

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/chatportal/src/portalapi"
	"github.com/elee1766/chatportal/src/theme"
)

const (
	// UntitledConversation is shown for conversations without a title
	UntitledConversation = "Untitled Conversation"

	// IntroHint is shown for a conversation without messages
	IntroHint = "Start chatting by typing below."

	defaultWidth          = 80
	defaultHighlightStyle = "monokai"
)

var htmlTag = regexp.MustCompile(`(?i)<\s*/?\s*(p|br|b|i|em|strong|ul|ol|li|pre|code|h[1-6]|a|div|span|table|blockquote)\b[^>]*>`)

// Options controls rendering
type Options struct {
	Width          int
	Markdown       bool // convert HTML replies to Markdown instead of plain text
	Highlight      bool // highlight fenced code blocks
	HighlightStyle string
	BotName        string // sender shown in the pending indicator
	Theme          theme.Theme
}

// Renderer draws messages and conversation lists
type Renderer struct {
	opts    Options
	user    lipgloss.Style
	bot     lipgloss.Style
	muted   lipgloss.Style
	active  lipgloss.Style
	pending lipgloss.Style
}

// New creates a renderer. A zero Theme uses theme.CurrentTheme.
func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = defaultHighlightStyle
	}
	if opts.BotName == "" {
		opts.BotName = portalapi.BotSender
	}
	if opts.Theme.Name == "" {
		opts.Theme = theme.CurrentTheme
	}
	t := opts.Theme
	return &Renderer{
		opts:    opts,
		user:    lipgloss.NewStyle().Foreground(t.User).Bold(true),
		bot:     lipgloss.NewStyle().Foreground(t.Bot),
		muted:   lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true),
		active:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		pending: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}

// Title returns the display title of a conversation, truncated to width
func (r *Renderer) Title(conv portalapi.Conversation, width int) string {
	title := strings.TrimSpace(conv.Title)
	if title == "" {
		title = UntitledConversation
	}
	if width > 0 {
		title = ansi.Truncate(title, width, "…")
	}
	return title
}

// ConversationList renders one line per conversation, marking the active
// one
func (r *Renderer) ConversationList(convs []portalapi.Conversation, active portalapi.ID) string {
	if len(convs) == 0 {
		return r.muted.Render("No conversations yet.")
	}
	idWidth := 0
	for _, c := range convs {
		idWidth = max(idWidth, len(c.ID))
	}
	var b strings.Builder
	for _, c := range convs {
		marker := "  "
		line := fmt.Sprintf("%-*s  %s", idWidth, c.ID, r.Title(c, r.opts.Width-idWidth-4))
		if c.ID == active && !active.IsZero() {
			marker = "* "
			line = r.active.Render(line)
		}
		b.WriteString(marker)
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Thread renders a conversation's messages from the point of view of self.
// An empty thread shows the intro hint.
func (r *Renderer) Thread(msgs []portalapi.Message, self string, pending bool) string {
	if len(msgs) == 0 && !pending {
		return r.muted.Render(IntroHint)
	}
	parts := make([]string, 0, len(msgs)+1)
	for _, m := range msgs {
		parts = append(parts, r.Message(m, self))
	}
	if pending {
		parts = append(parts, r.Pending())
	}
	return strings.Join(parts, "\n\n")
}

// Pending renders the indicator shown while a reply is awaited
func (r *Renderer) Pending() string {
	return r.pending.Render(r.opts.BotName + " is typing…")
}

// Message renders a single message. Messages sent by self are right
// aligned, everything else left aligned.
func (r *Renderer) Message(msg portalapi.Message, self string) string {
	mine := self != "" && msg.Sender == self
	style := r.bot
	if mine {
		style = r.user
	}

	header := style.Render(msg.Sender)
	body := r.Content(msg.Content)
	width := r.opts.Width
	block := lipgloss.NewStyle().Width(width).Align(lipgloss.Left)
	if mine {
		block = block.Align(lipgloss.Right)
	}
	return block.Render(header + "\n" + body)
}

// Content converts message markup into terminal text
func (r *Renderer) Content(content string) string {
	text := strings.TrimSpace(content)
	if IsHTML(text) {
		var err error
		if r.opts.Markdown {
			text, err = HTMLToMarkdown(text)
		} else {
			text, err = PlainText(text)
		}
		if err != nil {
			text = strings.TrimSpace(content)
		}
	}
	if r.opts.Highlight {
		text = HighlightCode(text, r.opts.HighlightStyle)
	}
	return text
}

// IsHTML reports whether s looks like an HTML fragment
func IsHTML(s string) bool {
	return htmlTag.MatchString(s)
}

// HTMLToMarkdown converts an HTML fragment to Markdown
func HTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	for strings.Contains(markdown, "\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	}
	return markdown, nil
}

// PlainText strips all markup from an HTML fragment
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, pre, h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// HighlightCode highlights the bodies of fenced code blocks. Unknown
// languages are left to chroma's fallback lexer.
func HighlightCode(text, style string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var out []string
	var code []string
	lang := ""
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			if inBlock {
				code = append(code, line)
			} else {
				out = append(out, line)
			}
			continue
		}
		if !inBlock {
			inBlock = true
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			code = code[:0]
			out = append(out, line)
			continue
		}
		inBlock = false
		out = append(out, highlight(strings.Join(code, "\n"), lang, style))
		out = append(out, line)
	}
	if inBlock {
		// unterminated block, keep it as typed
		out = append(out, code...)
	}
	return strings.Join(out, "\n")
}

func highlight(code, lang, style string) string {
	var b strings.Builder
	if lang == "" {
		lang = "plaintext"
	}
	if err := quick.Highlight(&b, code, lang, "terminal256", style); err != nil {
		return code
	}
	return strings.TrimRight(b.String(), "\n")
}
