package suclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/permaweb/cu/suclient"
)

var _ = Describe("type Cursor", func() {
	var server *httptest.Server

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("pages through the message log until exhausted", func() {
		pages := [][]Message{
			{{Ordinate: "1"}, {Ordinate: "2"}},
			{{Ordinate: "3"}},
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			from := r.URL.Query().Get("from")

			var msgs []Message
			hasMore := false

			switch from {
			case "0":
				msgs, hasMore = pages[0], true
			case "2":
				msgs, hasMore = pages[1], false
			default:
				msgs, hasMore = nil, false
			}

			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages": msgs,
				"hasMore":  hasMore,
			})
		}))

		client := &Client{BaseURL: server.URL}

		cur, err := client.LoadMessages(context.Background(), "p1", "0", "100")
		Expect(err).NotTo(HaveOccurred())
		defer cur.Close()

		var got []string
		for {
			m, err := cur.Next(context.Background())
			if err != nil {
				break
			}
			got = append(got, string(m.Ordinate))
		}

		Expect(got).To(Equal([]string{"1", "2", "3"}))
	})

	It("returns ErrCursorClosed after Close", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"messages": []Message{}, "hasMore": false})
		}))

		client := &Client{BaseURL: server.URL}
		cur, err := client.LoadMessages(context.Background(), "p1", "0", "100")
		Expect(err).NotTo(HaveOccurred())

		Expect(cur.Close()).To(Succeed())
		Expect(cur.Close()).To(MatchError(ErrCursorClosed))
	})
})
