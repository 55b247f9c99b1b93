package ops

import (
	"context"
	"strings"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// InboxOutput contains the result of the Inbox operation.
type InboxOutput struct {
	Conversations []workspace.Conversation `json:"conversations"`
	Unread        int                      `json:"unread"`
}

// Inbox groups messages into conversations, most recently active first.
func Inbox(ctx context.Context, st *store.Store) (*InboxOutput, error) {
	if err := checkCtx(ctx, "inbox"); err != nil {
		return nil, err
	}
	snap := st.Snapshot()
	return &InboxOutput{
		Conversations: workspace.GroupConversations(snap.Messages, snap.Contacts),
		Unread:        len(workspace.UnreadMessages(snap.Messages)),
	}, nil
}

// ConversationInput contains parameters for the Conversation operation.
type ConversationInput struct {
	ContactID string // required
	MarkRead  bool   // mark inbound messages read after loading
}

// ConversationOutput contains the result of the Conversation operation.
type ConversationOutput struct {
	Conversation workspace.Conversation `json:"conversation"`
	MarkedRead   int                    `json:"marked_read"`
}

// Conversation returns one contact's thread, oldest message first.
func Conversation(ctx context.Context, st *store.Store, input ConversationInput) (*ConversationOutput, error) {
	if err := checkCtx(ctx, "conversation"); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ContactID)
	if id == "" {
		return nil, errors.NewInvalidRequest("contact_id is required")
	}

	marked := 0
	if input.MarkRead {
		n, err := st.MarkConversationRead(id)
		if err != nil {
			return nil, err
		}
		marked = n
	}

	snap := st.Snapshot()
	conv, ok := workspace.FindConversation(workspace.GroupConversations(snap.Messages, snap.Contacts), id)
	if !ok {
		return nil, errors.NewNotFound("conversation", id)
	}
	return &ConversationOutput{Conversation: conv, MarkedRead: marked}, nil
}

// ReplyInput contains parameters for the Reply operation.
type ReplyInput struct {
	ContactID string // required
	Content   string // required
	Channel   string // email (default) or sms
}

// Reply appends an outbound message to a conversation.
func Reply(ctx context.Context, st *store.Store, input ReplyInput) (*workspace.Message, error) {
	if err := checkCtx(ctx, "reply"); err != nil {
		return nil, err
	}
	if err := requireActivated(st); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ContactID)
	if id == "" {
		return nil, errors.NewInvalidRequest("contact_id is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}
	channel := workspace.Channel(strings.ToLower(strings.TrimSpace(input.Channel)))
	if channel == "" {
		channel = workspace.ChannelEmail
	}
	if channel != workspace.ChannelEmail && channel != workspace.ChannelSMS {
		return nil, errors.NewInvalidRequest("channel must be one of: email, sms")
	}

	msg, err := st.AddMessage(workspace.Message{
		ContactID: id,
		Direction: workspace.Outbound,
		Content:   content,
		Type:      channel,
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
