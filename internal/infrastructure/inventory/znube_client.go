package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/domain/allocation"
	"github.com/meliznube/backend/internal/infrastructure/auth"
)

// tokenHeader is the omnichannel API's auth header. The API occasionally
// rotates the token by echoing a replacement in the same header of a
// response.
const tokenHeader = "zNube-token"

// Client talks to the omnichannel inventory API. It implements
// allocation.InventoryClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *auth.InventoryTokens
	logger     *zap.Logger
}

// NewClient creates an inventory Client.
func NewClient(baseURL string, tokens *auth.InventoryTokens, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// Wire DTOs. The API serializes with PascalCase keys.

type omnichannelResponse struct {
	Data *omnichannelData `json:"Data"`
}

type omnichannelData struct {
	Stock     []omnichannelStockItem `json:"Stock"`
	Resources []omnichannelResource  `json:"Resources"`
	Products  map[string]string      `json:"Products"`
}

type omnichannelStockItem struct {
	Stock     []omnichannelStockDetail `json:"Stock"`
	ProductID string                   `json:"ProductId"`
	SKU       string                   `json:"Sku"`
}

type omnichannelStockDetail struct {
	ResourceID string  `json:"ResourceId"`
	Quantity   float64 `json:"Quantity"`
}

type omnichannelResource struct {
	ResourceID string  `json:"ResourceId"`
	Name       string  `json:"Name"`
	TotalStock float64 `json:"TotalStock"`
}

// QueryStockBySKU fetches the stock snapshot for one SKU. A 404 or an
// empty payload means the SKU is unknown and maps to
// allocation.ErrSkuNotFound.
func (c *Client) QueryStockBySKU(ctx context.Context, sku string) (*allocation.StockSnapshot, error) {
	data, err := c.getStock(ctx, url.Values{"sku": {sku}})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("sku %s: %w", sku, allocation.ErrSkuNotFound)
	}
	return mapSnapshot(data, sku), nil
}

func (c *Client) getStock(ctx context.Context, query url.Values) (*omnichannelData, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Omnichannel/GetStock?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(tokenHeader, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.rotateIfReplaced(ctx, token, resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory stock query: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var dto omnichannelResponse
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode stock response: %w", err)
	}
	return dto.Data, nil
}

// rotateIfReplaced persists a replacement token echoed by the API. A
// failed save only costs a re-rotation on the next call.
func (c *Client) rotateIfReplaced(ctx context.Context, current string, resp *http.Response) {
	replacement := resp.Header.Get(tokenHeader)
	if replacement == "" || replacement == current {
		return
	}
	if err := c.tokens.Rotate(ctx, replacement); err != nil {
		c.logger.Warn("inventory token rotation failed", zap.Error(err))
		return
	}
	c.logger.Info("inventory token rotated")
}

// mapSnapshot converts the wire payload to the domain snapshot. The
// endpoint answers with stock for every SKU of the matching product, so
// only the requested SKU's per-resource stock is kept; resource metadata
// is kept in full.
func mapSnapshot(data *omnichannelData, sku string) *allocation.StockSnapshot {
	snap := &allocation.StockSnapshot{}

	for _, r := range data.Resources {
		snap.Resources = append(snap.Resources, allocation.Resource{
			ID:         r.ResourceID,
			Name:       r.Name,
			TotalStock: decimal.NewFromFloat(r.TotalStock),
		})
	}

	for _, item := range data.Stock {
		if !strings.EqualFold(item.SKU, sku) {
			continue
		}
		if snap.ProductID == "" && strings.TrimSpace(item.ProductID) != "" {
			snap.ProductID = item.ProductID
		}
		for _, detail := range item.Stock {
			if strings.TrimSpace(detail.ResourceID) == "" {
				continue
			}
			snap.SkuStock = append(snap.SkuStock, allocation.SkuStock{
				ResourceID: detail.ResourceID,
				Quantity:   decimal.NewFromFloat(detail.Quantity),
			})
		}
	}

	if snap.ProductID != "" && data.Products != nil {
		snap.Title = data.Products[snap.ProductID]
	}
	return snap
}

var _ allocation.InventoryClient = (*Client)(nil)
