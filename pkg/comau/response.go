package comau

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
)

// The cell program answers by writing "[ <id>]: <text> #" into the shared
// memory block. 70 characters after the marker cover every reply the
// program produces.
const replyReadLength = 70

// ReplyErrorKind tells apart the ways a robot reply can be unusable.
type ReplyErrorKind string

const (
	ReplyIDNotFound   ReplyErrorKind = "id_not_found"
	ReplyTextMismatch ReplyErrorKind = "text_mismatch"
	ReplyIncomplete   ReplyErrorKind = "incomplete_response"
	ReplyBadFormat    ReplyErrorKind = "invalid_format"
	ReplyBridgeError  ReplyErrorKind = "bridge_error"
)

// RobotReply is the outcome of waiting for a sequence-id reply.
type RobotReply struct {
	Success     bool
	IDFound     bool
	Text        string
	FullContext string
	ErrKind     ReplyErrorKind
	ErrMessage  string
}

// extractReplyText pulls the text between the first ':' and the
// terminating '#' out of a memory block context line.
func extractReplyText(fullContext string) (string, ReplyErrorKind) {
	colon := strings.Index(fullContext, ":")
	if colon == -1 {
		return "", ReplyBadFormat
	}
	hash := strings.Index(fullContext[colon+1:], "#")
	if hash == -1 {
		return strings.TrimSpace(fullContext[colon+1:]), ReplyIncomplete
	}
	return strings.TrimSpace(fullContext[colon+1 : colon+1+hash]), ""
}

// WaitRobotResponse searches the memory block for the reply tagged with
// sequenceID. If want is non-empty the reply text must match it exactly.
// timeoutMs is forwarded to the bridge-side search.
func (c *Commander) WaitRobotResponse(ctx context.Context, sequenceID int, want string, timeoutMs int) (RobotReply, error) {
	args := &datamodel.CommandArgs{
		BlockID:      driveBlockID,
		SearchString: fmt.Sprintf("[ %d]:", sequenceID),
		Length:       replyReadLength,
		TimeoutMs:    timeoutMs,
	}

	// The bridge answers only after its search timeout elapses; give it
	// that long plus slack. Execute honors this deadline over its own
	// commander timeout.
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond+5*time.Second)
	defer cancel()

	resp, err := c.Execute(waitCtx, datamodel.CmdFindStringLenInBlock, "wait_response", args)
	if err != nil {
		return RobotReply{
			ErrKind:    ReplyBridgeError,
			ErrMessage: err.Error(),
		}, err
	}

	if resp.Status != datamodel.StatusSuccess {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "search failed"
		}
		return RobotReply{ErrKind: ReplyBridgeError, ErrMessage: msg}, nil
	}

	if len(resp.Occurrences) == 0 {
		return RobotReply{
			ErrKind:    ReplyIDNotFound,
			ErrMessage: fmt.Sprintf("sequence id %d not found", sequenceID),
		}, nil
	}

	full := resp.Occurrences[0].FullContext
	text, kind := extractReplyText(full)
	if kind != "" {
		return RobotReply{
			IDFound:     true,
			Text:        text,
			FullContext: full,
			ErrKind:     kind,
			ErrMessage:  fmt.Sprintf("unparsable reply %q", full),
		}, nil
	}

	if want != "" && text != want {
		return RobotReply{
			IDFound:     true,
			Text:        text,
			FullContext: full,
			ErrKind:     ReplyTextMismatch,
			ErrMessage:  fmt.Sprintf("expected %q, robot answered %q", want, text),
		}, nil
	}

	return RobotReply{
		Success:     true,
		IDFound:     true,
		Text:        text,
		FullContext: full,
	}, nil
}
