package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/config"
)

const (
	exitOK        = 0
	exitGeneric   = 1
	exitUsage     = 2
	exitAuth      = 3
	exitNotFound  = 4
	exitForbidden = 5
	exitServer    = 7
	exitNetwork   = 8
	exitDecode    = 9
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var handled *handledError
	if errors.As(err, &handled) {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	if code := exitCodeFromNetwork(err); code != 0 {
		return code
	}
	if errors.Is(err, config.ErrNotConfigured) {
		return exitAuth
	}
	var unknownEnv *config.UnknownEnvironmentError
	if errors.As(err, &unknownEnv) {
		return exitUsage
	}
	if isUsageError(err) {
		return exitUsage
	}
	return exitGeneric
}

func exitCodeFromNetwork(err error) int {
	if _, ok := api.AsNetworkError(err); !ok {
		return 0
	}
	switch api.CodeOf(err) {
	case api.CodeUnauthorized:
		return exitAuth
	case api.CodeForbidden:
		return exitForbidden
	case api.CodeNotFound:
		return exitNotFound
	case api.CodeServerError:
		return exitServer
	case api.CodeTransport, api.CodeTimeout, api.CodeCanceled:
		return exitNetwork
	case api.CodeDecodingFailed:
		return exitDecode
	case api.CodeBadRequest, api.CodeClientError, api.CodeInvalidRequest:
		return exitUsage
	default:
		return 0
	}
}

func isUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	indicators := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"flag provided but not defined",
		"accepts ",
		"requires at least",
		"requires exactly",
		"invalid argument",
		"invalid value",
		"must be",
		"is required",
		"missing",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
