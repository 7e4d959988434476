package mlog_test

import (
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/permaweb/cu/internal/mlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func LogEvaluate()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		LogEvaluate(logger, "<process>", "3", "<message>", 0)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <process>  ⋲ <message>  ∴ 3  ▼   ",
			},
		))
	})

	It("shows a retry icon if the failure count is non-zero", func() {
		logger := &logging.BufferedLogger{}

		LogEvaluate(logger, "<process>", "3", "<message>", 1)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <process>  ⋲ <message>  ∴ 3  ▼ ↻ ",
			},
		))
	})
})

var _ = Describe("func LogCheckpoint()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		LogCheckpoint(logger, "<process>", "3", "<tx>")

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <process>  ∴ 3  ▲    <tx>",
			},
		))
	})
})

var _ = Describe("func LogCheckpointFailed()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		LogCheckpointFailed(logger, "<process>", "3", errors.New("<error>"))

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <process>  ∴ 3  △ ✖  <error>",
			},
		))
	})
})

var _ = Describe("func LogAdmissionRejected()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		LogAdmissionRejected(logger, "dry-run", "<process>", 5*time.Second)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <process>  ⊢ ⊘  dry-run ● retry after 5s",
			},
		))
	})
})
