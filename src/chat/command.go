package chat

import (
	"context"
	"fmt"

	"github.com/elee1766/chatportal/src/portalapi"
)

// Command is a context action on a single conversation, such as the
// entries of a conversation's menu.
type Command interface {
	Target() portalapi.ID
	isCommand()
}

// RenameCommand renames a conversation
type RenameCommand struct {
	ID    portalapi.ID
	Title string
}

func (c RenameCommand) Target() portalapi.ID { return c.ID }
func (RenameCommand) isCommand() {}

// DeleteCommand deletes a conversation
type DeleteCommand struct {
	ID portalapi.ID
}

func (c DeleteCommand) Target() portalapi.ID { return c.ID }
func (DeleteCommand) isCommand() {}

// Dispatch runs cmd against the list
func (l *List) Dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case RenameCommand:
		return l.Rename(ctx, c.ID, c.Title)
	case DeleteCommand:
		return l.Delete(ctx, c.ID)
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}
