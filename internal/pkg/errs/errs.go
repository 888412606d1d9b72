package errs

import "errors"

//DefaultCode is a default service error code
const DefaultCode = "SERVICE_ERROR"

// pipelineErr is a tagged pipeline failure. The code ends up in the space
// record, the terminal flag drives the worker's retry/no-retry decision.
type pipelineErr struct {
	code     string
	terminal bool
	text     string
}

func (e *pipelineErr) Error() string { return e.text }

//Taxonomy of pipeline failures. Wrap with pkg/errors to attach details:
// errors.Wrapf(errs.ErrDownload, "ffmpeg exit code %d", code)
var (
	ErrInvalidURL        error = &pipelineErr{"INVALID_URL", true, "invalid space URL"}
	ErrAuthentication    error = &pipelineErr{"AUTHENTICATION_ERROR", false, "authentication failed"}
	ErrNotAvailable      error = &pipelineErr{"NOT_AVAILABLE", true, "space is not available for replay"}
	ErrStreamUnavailable error = &pipelineErr{"STREAM_UNAVAILABLE", false, "no stream found for space"}
	ErrDownload          error = &pipelineErr{"DOWNLOAD_ERROR", false, "audio download failed"}
	ErrTranscription     error = &pipelineErr{"TRANSCRIPTION_ERROR", false, "transcription failed"}
	ErrFormatting        error = &pipelineErr{"FORMATTING_ERROR", false, "transcript formatting failed"}
	ErrNoValidContext    error = &pipelineErr{"NO_VALID_CONTEXT", false, "no valid space context"}
	ErrStorage           error = &pipelineErr{"STORAGE_ERROR", false, "storage failure"}
)

//Code extracts the taxonomy code from the error chain
func Code(err error) string {
	var pe *pipelineErr
	if errors.As(err, &pe) {
		return pe.code
	}
	return DefaultCode
}

//IsTerminal indicates the failure can't be fixed by retrying
func IsTerminal(err error) bool {
	var pe *pipelineErr
	if errors.As(err, &pe) {
		return pe.terminal
	}
	return false
}
