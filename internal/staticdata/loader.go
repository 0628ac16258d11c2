package staticdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"eve-data-hub/internal/logger"
)

// ErrResourceUnavailable marks a non-success transport response for a static
// resource fetch.
var ErrResourceUnavailable = errors.New("static resource unavailable")

// ErrMalformedPayload marks a static resource that parsed into something
// other than the expected shape.
var ErrMalformedPayload = errors.New("malformed static payload")

// Loader fetches the bundled locations and item-taxonomy resources from the
// application origin. No retry: the app cannot function without these, so the
// caller decides whether to abort initialization.
type Loader struct {
	http    *http.Client
	baseURL string
}

// NewLoader creates a Loader rooted at baseURL (empty means same process
// origin, i.e. relative paths handed to an absolute-capable client).
func NewLoader(baseURL string) *Loader {
	return &Loader{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// LoadLocations fetches and parses the location tree resource.
func (l *Loader) LoadLocations(ctx context.Context, path string) (LocationTree, error) {
	body, err := l.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	var tree LocationTree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, path, err)
	}
	if len(tree) == 0 {
		return nil, fmt.Errorf("%w: %s: no regions", ErrMalformedPayload, path)
	}
	logger.Success("StaticData", fmt.Sprintf("Loaded %d regions from %s", len(tree), path))
	return tree, nil
}

// LoadTaxonomy fetches and parses the item taxonomy resource.
func (l *Loader) LoadTaxonomy(ctx context.Context, path string) (*TaxonomyNode, error) {
	body, err := l.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	var root TaxonomyNode
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, path, err)
	}
	if !root.IsCategory() {
		return nil, fmt.Errorf("%w: %s: top level is not an object", ErrMalformedPayload, path)
	}
	logger.Success("StaticData", fmt.Sprintf("Loaded %d top-level market groups from %s", len(root.Children), path))
	return &root, nil
}

func (l *Loader) fetch(ctx context.Context, path string) ([]byte, error) {
	url := l.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrResourceUnavailable, path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceUnavailable, path, err)
	}
	return body, nil
}
