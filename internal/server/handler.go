// Package server provides the WebSocket command surface for the
// recorder: request validation, command routing and response helpers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/loopcorder/loopcorder/internal/types"
)

// validate is shared by all request types. Error messages use the JSON
// field names clients actually sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// DecodeAndValidate decodes the command payload into data and validates
// it. On failure the error reply has already been sent and the caller
// must not process the command.
func DecodeAndValidate[T any](cmd WSCommand, send chan<- any, data *T) bool {
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, data); err != nil {
			SendError(send, cmd.Type, fmt.Errorf("invalid JSON: %w", err))
			return false
		}
	}
	if err := validate.Struct(data); err != nil {
		SendValidationErrors(send, cmd.Type, err)
		return false
	}
	return true
}

// HandleCommand is the synchronous path: decode, validate, process,
// reply. process gets the validated request.
func HandleCommand[T any](cmd WSCommand, send chan<- any, process func(*T) error) {
	var data T
	if !DecodeAndValidate(cmd, send, &data) {
		return
	}
	if err := process(&data); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// HandleActionAsync runs action on its own goroutine and replies when it
// finishes. Use it for anything that blocks: device opens, encodes,
// network tests. Panics become an error reply instead of killing the
// connection.
func HandleActionAsync(cmd WSCommand, send chan<- any, action func() (any, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in async handler", "command", cmd.Type, "panic", r)
				SendError(send, cmd.Type, fmt.Errorf("internal error"))
			}
		}()

		result, err := action()
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, result)
	}()
}

// SendSuccess replies to a command with optional result data.
func SendSuccess(send chan<- any, cmdType string, data any) {
	trySend(send, cmdType, types.WSCommandResult{
		Type:    cmdType + "_result",
		Success: true,
		Data:    data,
	})
}

// SendError replies to a command with a single unscoped error.
func SendError(send chan<- any, cmdType string, err error) {
	verr := types.NewValidationError()
	verr.Add("", err.Error(), nil)
	sendFailure(send, cmdType, verr)
}

// SendValidationErrors replies with one entry per failed field.
func SendValidationErrors(send chan<- any, cmdType string, err error) {
	verr := types.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			verr.Add(e.Field(), validationMessage(e), e.Value())
		}
	} else {
		verr.Add("", err.Error(), nil)
	}
	sendFailure(send, cmdType, verr)
}

func sendFailure(send chan<- any, cmdType string, verr *types.ValidationError) {
	trySend(send, cmdType, types.WSCommandResult{
		Type:    cmdType + "_result",
		Success: false,
		Error:   verr,
	})
}

// trySend never blocks the caller. A full client channel means the
// reader is not keeping up and the reply is dropped.
func trySend(send chan<- any, cmdType string, msg any) {
	select {
	case send <- msg:
	default:
		slog.Warn("dropped response: send channel full or closed", "type", cmdType)
	}
}

// validationMessage renders a field error for clients.
func validationMessage(e validator.FieldError) string {
	switch tag := e.Tag(); tag {
	case "required":
		return "is required"
	case "gte", "min":
		return "must be at least " + e.Param()
	case "lte", "max":
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return fmt.Sprintf("failed validation '%s'", tag)
	}
}
