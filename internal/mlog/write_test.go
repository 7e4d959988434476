package mlog_test

import (
	"strings"

	. "github.com/permaweb/cu/internal/mlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = DescribeTable(
	"func String()",
	append([]interface{}{
		func(expected string, ids []IconWithLabel, icons []Icon, text []string) {
			Expect(
				String(ids, icons, text...),
			).To(Equal(expected))
		},
	}, writeEntries()...)...,
)

var _ = DescribeTable(
	"func Write()",
	append([]interface{}{
		func(expected string, ids []IconWithLabel, icons []Icon, text []string) {
			w := &strings.Builder{}

			n, err := Write(w, ids, icons, text...)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(n).To(Equal(len(expected)))

			Expect(w.String()).To(Equal(expected))
		},
	}, writeEntries()...)...,
)

func writeEntries() []interface{} {
	entries := []TableEntry{
		Entry(
			"renders a standard log message",
			"= 123  ⋲ 456  ▼ ↻  <foo> ● <bar>",
			[]IconWithLabel{
				ProcessIDIcon.WithLabel("123"),
				MessageIDIcon.WithLabel("456"),
			},
			[]Icon{
				EvaluateIcon,
				RetryIcon,
			},
			[]string{
				"<foo>",
				"<bar>",
			},
		),
		Entry(
			"renders a hyphen in place of empty labels",
			"= 123  ⋲ -  ▼    <foo> ● <bar>",
			[]IconWithLabel{
				ProcessIDIcon.WithLabel("123"),
				MessageIDIcon.WithLabel(""),
			},
			[]Icon{
				EvaluateIcon,
				"",
			},
			[]string{
				"<foo>",
				"<bar>",
			},
		),
		Entry(
			"pads empty icons to the same width",
			"= 123  ⋲ 456  ▼    <foo> ● <bar>",
			[]IconWithLabel{
				ProcessIDIcon.WithLabel("123"),
				MessageIDIcon.WithLabel("456"),
			},
			[]Icon{
				EvaluateIcon,
				"",
			},
			[]string{
				"<foo>",
				"<bar>",
			},
		),
		Entry(
			"skips empty text",
			"= 123  ⋲ 456  ▼ ↻  <foo> ● <bar>",
			[]IconWithLabel{
				ProcessIDIcon.WithLabel("123"),
				MessageIDIcon.WithLabel("456"),
			},
			[]Icon{
				EvaluateIcon,
				RetryIcon,
			},
			[]string{
				"<foo>",
				"",
				"<bar>",
			},
		),
	}

	args := make([]interface{}, len(entries))
	for i, e := range entries {
		args[i] = e
	}
	return args
}
