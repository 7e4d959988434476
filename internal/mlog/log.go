package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
)

// LogEvaluate logs a message indicating that a message is being evaluated
// for a process.
func LogEvaluate(
	log logging.Logger,
	processID, ordinate, messageID string,
	fc uint,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
				MessageIDIcon.WithID(messageID),
				OrdinateIcon.WithID(ordinate),
			},
			[]Icon{
				EvaluateIcon,
				retryIcon(fc),
			},
		),
	)
}

// LogEvaluated logs a debug message produced once an evaluation completes.
//
// It is designed to be used with defer.
func LogEvaluated(
	log logging.Logger,
	processID, ordinate string,
	gasUsed uint64,
	err *error,
) {
	if !logging.IsDebug(log) {
		return
	}

	if p := recover(); p != nil {
		panic(p)
	}

	msg := fmt.Sprintf("gas used: %d", gasUsed)
	icon := EvaluateIcon

	if *err != nil {
		msg = (*err).Error()
		icon = EvaluateErrorIcon
	}

	logging.Debug(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
				OrdinateIcon.WithID(ordinate),
			},
			[]Icon{
				icon,
				errorIcon(*err),
			},
			msg,
		),
	)
}

// LogCheckpoint logs a message indicating that a process memory checkpoint
// was saved successfully.
func LogCheckpoint(
	log logging.Logger,
	processID, ordinate, txID string,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
				OrdinateIcon.WithID(ordinate),
			},
			[]Icon{
				CheckpointIcon,
				"",
			},
			txID,
		),
	)
}

// LogCheckpointFailed logs a message indicating that saving a checkpoint
// failed. Checkpoint failures are always swallowed; this is informational
// only.
func LogCheckpointFailed(
	log logging.Logger,
	processID, ordinate string,
	cause error,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
				OrdinateIcon.WithID(ordinate),
			},
			[]Icon{
				CheckpointErrorIcon,
				ErrorIcon,
			},
			cause.Error(),
		),
	)
}

// LogAdmissionRejected logs a message indicating that the admission queue
// for a worker pool rejected a submission because it was full.
func LogAdmissionRejected(
	log logging.Logger,
	pool, processID string,
	delay time.Duration,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
			},
			[]Icon{
				AdmissionIcon,
				OverloadIcon,
			},
			pool,
			fmt.Sprintf("retry after %s", delay),
		),
	)
}

// LogEviction logs a message indicating that a process memory cache entry
// was evicted from the in-memory tier.
func LogEviction(
	log logging.Logger,
	processID string,
	spilled bool,
) {
	if !logging.IsDebug(log) {
		return
	}

	reason := "dropped"
	if spilled {
		reason = "spilled to file"
	}

	logging.Debug(
		log,
		String(
			[]IconWithLabel{
				ProcessIDIcon.WithID(processID),
			},
			[]Icon{
				EvictionIcon,
				"",
			},
			reason,
		),
	)
}
