package checkpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/permaweb/cu/cuerr"
)

// downloadAndVerify fetches a checkpoint's raw data by transaction id and
// checks it against the memory hash the gateway reported for it.
func (p *Pipeline) downloadAndVerify(ctx context.Context, d Descriptor) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Gateway.URL+"/"+d.TxID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.Gateway.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkpoint: gateway download failed with status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if d.MemoryHash != "" && HashMemory(payload) != d.MemoryHash {
		return nil, cuerr.Invalid("checkpoint payload hash does not match its Memory-Hash tag")
	}

	return payload, nil
}
