package server

import (
	"cmp"

	"github.com/loopcorder/loopcorder/internal/eventlog"
)

// DefaultEventLimit is the page size for events/get when the client
// does not specify one.
const DefaultEventLimit = 50

// handleEventsGet processes an events/get command with pagination.
func (h *CommandHandler) handleEventsGet(cmd WSCommand, send chan<- any) {
	var req EventsGetRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		var filter eventlog.TypeFilter
		switch req.Filter {
		case "session":
			filter = eventlog.FilterSession
		case "silence":
			filter = eventlog.FilterSilence
		case "file":
			filter = eventlog.FilterFile
		default:
			filter = eventlog.FilterAll
		}

		limit := cmp.Or(req.Limit, DefaultEventLimit)
		events, hasMore, err := eventlog.ReadLast(h.events.Path(), limit, req.Offset, filter)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"events":   events,
			"has_more": hasMore,
		}, nil
	})
}
