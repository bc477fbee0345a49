package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxBOEBody = 32 << 20

// BOEClient downloads consolidated legislation from the BOE open data API.
type BOEClient struct {
	BaseURL string
	Client  *http.Client
}

func NewBOEClient() *BOEClient {
	return &BOEClient{
		BaseURL: "https://www.boe.es/datosabiertos/api/legislacion-consolidada",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchConsolidated returns the raw XML of the consolidated text for boeID (e.g. BOE-A-1978-31229).
func (b *BOEClient) FetchConsolidated(ctx context.Context, boeID string) ([]byte, error) {
	u := fmt.Sprintf("%s/id/%s/texto", b.BaseURL, url.PathEscape(boeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("boe error %d for %s: %s", resp.StatusCode, boeID, string(body))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBOEBody))
}
