package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/permaweb/cu/ordinate"
)

// Gateway queries a content-addressed network's GraphQL endpoint for
// checkpoint transactions tagged with process/module/owner metadata.
//
// net/http and encoding/json are used directly: no GraphQL client ships
// in the dependency set this service is built from, and the query this
// component sends is small and fixed enough that generating a client from
// a schema would add more than it would save.
type Gateway struct {
	URL    string
	Client *http.Client
}

func (g Gateway) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}

// Descriptor is a checkpoint transaction as returned by the gateway,
// before the payload itself has been downloaded.
type Descriptor struct {
	TxID       string
	ProcessID  string
	ModuleID   string
	Owner      string
	Ordinate   ordinate.Ordinate
	MemoryHash string
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlTxEdge struct {
	Node struct {
		ID    string `json:"id"`
		Owner struct {
			Address string `json:"address"`
		} `json:"owner"`
		Tags []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"tags"`
	} `json:"node"`
}

type gqlResponse struct {
	Data struct {
		Transactions struct {
			Edges []gqlTxEdge `json:"edges"`
		} `json:"transactions"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const checkpointQuery = `
query($owners: [String!], $tags: [TagFilter!], $first: Int) {
  transactions(owners: $owners, tags: $tags, first: $first) {
    edges {
      node {
        id
        owner { address }
        tags { name value }
      }
    }
  }
}`

// Query runs the checkpoint-lookup GraphQL query, filtered by the process's
// Process-Id tag, the Data-Protocol tag, and the set of trusted owners. It
// does not filter by module; the Module-Id tag is only read back into each
// Descriptor.
func (g Gateway) Query(ctx context.Context, processID string, trustedOwners []string) ([]Descriptor, error) {
	tags := []map[string]any{
		{"name": "Process-Id", "values": []string{processID}},
		{"name": "Data-Protocol", "values": []string{"ao"}},
	}

	req := gqlRequest{
		Query: checkpointQuery,
		Variables: map[string]any{
			"owners": trustedOwners,
			"tags":   tags,
			"first":  50,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("checkpoint gateway: %s", out.Errors[0].Message)
	}

	descriptors := make([]Descriptor, 0, len(out.Data.Transactions.Edges))
	for _, edge := range out.Data.Transactions.Edges {
		d := Descriptor{TxID: edge.Node.ID, Owner: edge.Node.Owner.Address}
		for _, t := range edge.Node.Tags {
			switch t.Name {
			case "Process-Id":
				d.ProcessID = t.Value
			case "Module-Id":
				d.ModuleID = t.Value
			case "Memory-Hash":
				d.MemoryHash = t.Value
			case "Ordinate":
				d.Ordinate = ordinate.Ordinate(t.Value)
			}
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}
