package comments

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// FormatText writes the thread to w, one comment per entry:
//
//	[id] Display Name @username (2025-01-15T10:00:00Z) [N likes] (edited)
//	<2+depth*2 spaces>content
//
// Replies are indented by 2 spaces per depth level. Collapsed comments with
// replies get a hint line. An empty thread writes "No comments yet.\n".
func FormatText(w io.Writer, thread []Node) {
	if len(thread) == 0 {
		fmt.Fprint(w, "No comments yet.\n")
		return
	}

	for i, n := range thread {
		formatNode(w, n, 0)
		if i < len(thread)-1 {
			fmt.Fprintln(w)
		}
	}
}

func formatNode(w io.Writer, n Node, depth int) {
	indent := strings.Repeat(" ", depth*2)
	c := n.Comment

	author := "[deleted]"
	if c.UserID != nil || n.User.ID != "" {
		author = "@" + n.User.Username
		if n.User.DisplayName != "" {
			author = n.User.DisplayName + " " + author
		}
	}

	replyIndicator := ""
	if c.IsReply() {
		replyIndicator = "↩ "
	}

	header := fmt.Sprintf("%s[%s] %s%s (%s)", indent, c.ID, replyIndicator, author, c.CreatedAt.UTC().Format(time.RFC3339))

	switch {
	case n.LikesCount == 1:
		header += " [1 like]"
	case n.LikesCount > 1:
		header += fmt.Sprintf(" [%d likes]", n.LikesCount)
	}
	if n.LikedByUser {
		header += " ♥"
	}
	if c.UpdatedAt != nil {
		header += " (edited)"
	}
	fmt.Fprintln(w, header)

	textIndent := strings.Repeat(" ", depth*2+2)
	fmt.Fprintf(w, "%s%s\n", textIndent, c.Content)

	if !n.Expanded && n.RepliesCount > 0 {
		noun := "replies"
		if n.RepliesCount == 1 {
			noun = "reply"
		}
		fmt.Fprintf(w, "%s(%d %s, use --expand %s)\n", textIndent, n.RepliesCount, noun, c.ID)
	}

	for _, reply := range n.Replies {
		formatNode(w, reply, depth+1)
	}
}

// FormatJSON writes the thread as an indented JSON array to w. An empty
// thread writes "[]\n".
func FormatJSON(w io.Writer, thread []Node) error {
	if len(thread) == 0 {
		_, err := fmt.Fprint(w, "[]\n")
		return err
	}

	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
