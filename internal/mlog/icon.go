package mlog

import (
	"fmt"
	"io"
)

const (
	// ProcessIDIcon is the icon shown directly before a process ID.
	ProcessIDIcon Icon = "="

	// MessageIDIcon is the icon shown directly before a message ID.
	MessageIDIcon Icon = "⋲"

	// OrdinateIcon is the icon shown directly before an ordinate.
	OrdinateIcon Icon = "∴"

	// EvaluateIcon is the icon shown to indicate a message is being
	// evaluated. It is a downward pointing arrow, as the message is "fed
	// into" the WASM evaluator.
	EvaluateIcon Icon = "▼"

	// EvaluateErrorIcon is a variant of EvaluateIcon used when the WASM
	// execution itself reported an error. The evaluation still completed
	// and was persisted; it just carries an error payload.
	EvaluateErrorIcon Icon = "▽"

	// CheckpointIcon is the icon shown when a process memory checkpoint is
	// saved. It is an upward pointing arrow, as the snapshot is "uploaded"
	// to the content-addressed network.
	CheckpointIcon Icon = "▲"

	// CheckpointErrorIcon is a variant of CheckpointIcon used when the
	// checkpoint save failed. Checkpoint failures are swallowed, so this
	// icon only ever appears alongside a log message, never an error return.
	CheckpointErrorIcon Icon = "△"

	// AdmissionIcon is shown for worker-pool admission-queue events.
	AdmissionIcon Icon = "⊢"

	// OverloadIcon is shown when the admission queue rejects a submission.
	OverloadIcon Icon = "⊘"

	// EvictionIcon is shown when a memory cache entry is evicted.
	EvictionIcon Icon = "⤓"

	// RetryIcon is shown when an operation is being retried after a
	// transient failure.
	RetryIcon Icon = "↻"

	// ErrorIcon is the icon shown when logging information about an error.
	ErrorIcon Icon = "✖"

	// SeparatorIcon separates unrelated strings of text within a single log
	// message.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

// String returns the icon's text. If i is the zero-value, a single space is
// returned, so that an empty icon renders at the same width as WriteTo.
func (i Icon) String() string {
	if i == "" {
		return " "
	}
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
//
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel returns an IconWithLabel containing this icon and the given
// label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		formatLabel(fmt.Sprintf(f, v...)),
	}
}

// WithID returns an IconWithLabel containing this icon and an ID as its
// label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel(FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (n int64, err error) {
	var wn int
	if wn, err = io.WriteString(w, i.Icon.String()); err != nil {
		return int64(wn), err
	}
	n += int64(wn)

	if wn, err = w.Write(space1); err != nil {
		return n + int64(wn), err
	}
	n += int64(wn)

	wn, err = io.WriteString(w, i.Label)
	return n + int64(wn), err
}

// formatLabel formats a label for display.
func formatLabel(label string) string {
	if label == "" {
		return "-"
	}

	return label
}

// errorIcon returns ErrorIcon if err is non-nil, otherwise the empty icon.
func errorIcon(err error) Icon {
	if err == nil {
		return ""
	}

	return ErrorIcon
}

// retryIcon returns RetryIcon if n is non-zero, otherwise the empty icon.
func retryIcon(n uint) Icon {
	if n == 0 {
		return ""
	}

	return RetryIcon
}
