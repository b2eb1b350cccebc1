package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/domain/note"
	"github.com/meliznube/backend/internal/domain/order"
	"github.com/meliznube/backend/internal/infrastructure/auth"
)

// Config holds marketplace client settings.
type Config struct {
	BaseURL  string
	SellerID string

	// Logistic type names as the marketplace reports them.
	FullLogisticType string
	FlexLogisticType string
}

// Client talks to the marketplace REST API. It implements
// order.MarketplaceClient; all authentication is handled internally
// through the token provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     auth.TokenProvider
	logger     *zap.Logger
}

// NewClient creates a marketplace Client.
func NewClient(cfg Config, tokens auth.TokenProvider, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FullLogisticType == "" {
		cfg.FullLogisticType = "fulfillment"
	}
	if cfg.FlexLogisticType == "" {
		cfg.FlexLogisticType = "self_service"
	}
	return &Client{cfg: cfg, httpClient: httpClient, tokens: tokens, logger: logger}
}

// Wire DTOs.

type orderDTO struct {
	ID          json.Number `json:"id"`
	PackID      json.Number `json:"pack_id"`
	DateCreated string      `json:"date_created"`
	OrderItems  []struct {
		Item struct {
			Title     string `json:"title"`
			SellerSKU string `json:"seller_sku"`
		} `json:"item"`
		Quantity int64 `json:"quantity"`
	} `json:"order_items"`
	Buyer struct {
		Nickname  string `json:"nickname"`
		FirstName string `json:"first_name"`
	} `json:"buyer"`
	Shipping struct {
		ID json.Number `json:"id"`
	} `json:"shipping"`
}

type packDTO struct {
	Orders []struct {
		ID json.Number `json:"id"`
	} `json:"orders"`
}

type shipmentDTO struct {
	LogisticType    string `json:"logistic_type"`
	ReceiverAddress struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		State struct {
			Name string `json:"name"`
		} `json:"state"`
	} `json:"receiver_address"`
}

type notesDTO []struct {
	Results []struct {
		Note string `json:"note"`
	} `json:"results"`
}

type orderSearchDTO struct {
	Results []struct {
		Buyer struct {
			Nickname string `json:"nickname"`
		} `json:"buyer"`
	} `json:"results"`
}

// FetchOrder returns one order, or order.ErrNotFound when the marketplace
// does not know the id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var dto orderDTO
	status, err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &dto)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch order %s: status %d", orderID, status)
	}
	o := mapOrder(dto)
	return &o, nil
}

// FetchOrdersByPack lists the pack's member order ids and fetches each in
// full, preserving the pack's own ordering.
func (c *Client) FetchOrdersByPack(ctx context.Context, packID string) ([]order.Order, error) {
	var pack packDTO
	status, err := c.doJSON(ctx, http.MethodGet, "/packs/"+url.PathEscape(packID), nil, &pack)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("pack %s: %w", packID, order.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch pack %s: status %d", packID, status)
	}

	orders := make([]order.Order, 0, len(pack.Orders))
	for _, member := range pack.Orders {
		o, err := c.FetchOrder(ctx, member.ID.String())
		if err != nil {
			return nil, fmt.Errorf("fetch pack %s member: %w", packID, err)
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// FetchShipment returns shipment info for an order, or nil when the order
// carries no shipment id.
func (c *Client) FetchShipment(ctx context.Context, o *order.Order) (*order.Shipment, error) {
	if o == nil || strings.TrimSpace(o.ShippingID) == "" {
		return nil, nil
	}

	var dto shipmentDTO
	status, err := c.doJSON(ctx, http.MethodGet, "/shipments/"+url.PathEscape(o.ShippingID), nil, &dto)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch shipment %s: status %d", o.ShippingID, status)
	}

	s := &order.Shipment{
		LogisticType: dto.LogisticType,
		IsFull:       strings.EqualFold(dto.LogisticType, c.cfg.FullLogisticType),
		IsFlex:       strings.EqualFold(dto.LogisticType, c.cfg.FlexLogisticType),
		Zone:         joinZone(dto.ReceiverAddress.City.Name, dto.ReceiverAddress.State.Name),
	}
	return s, nil
}

// FetchNotes returns the existing note texts of an order.
func (c *Client) FetchNotes(ctx context.Context, orderID string) ([]string, error) {
	var dto notesDTO
	status, err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/notes", nil, &dto)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch notes for order %s: status %d", orderID, status)
	}

	var texts []string
	for _, entry := range dto {
		for _, res := range entry.Results {
			texts = append(texts, res.Note)
		}
	}
	return texts, nil
}

// UpsertNote writes a note to an order. It re-reads the order's notes
// right before posting, so a concurrent writer that got there first turns
// this call into a no-op rather than a duplicate.
func (c *Client) UpsertNote(ctx context.Context, orderID, text string) (bool, error) {
	existing, err := c.FetchNotes(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("pre-write note check for order %s: %w", orderID, err)
	}
	if note.ContainsAutoNote(existing) {
		c.logger.Debug("auto note already present, skipping write", zap.String("order_id", orderID))
		return false, nil
	}

	body := map[string]string{"note": text}
	status, err := c.doJSON(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/notes", body, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return false, fmt.Errorf("write note to order %s: status %d", orderID, status)
	}
	return true, nil
}

// CountRecentOrdersByBuyer reports whether the buyer shows up on two or
// more of the seller's orders inside [from, to].
func (c *Client) CountRecentOrdersByBuyer(ctx context.Context, from, to time.Time, buyerNickname, sellerID string) (bool, error) {
	q := url.Values{
		"seller":                  {sellerID},
		"order.date_created.from": {from.Format(time.RFC3339)},
		"order.date_created.to":   {to.Format(time.RFC3339)},
	}

	var dto orderSearchDTO
	status, err := c.doJSON(ctx, http.MethodGet, "/orders/search?"+q.Encode(), nil, &dto)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("order search: status %d", status)
	}

	count := 0
	for _, res := range dto.Results {
		if strings.EqualFold(res.Buyer.Nickname, buyerNickname) {
			count++
			if count >= 2 {
				return true, nil
			}
		}
	}
	return false, nil
}

// SendBuyerMessage sends the post-sale courtesy message for an order or
// pack resource.
func (c *Client) SendBuyerMessage(ctx context.Context, resourceID, text string) error {
	path := fmt.Sprintf("/messages/action_guide/packs/%s/sellers/%s?tag=post_sale",
		url.PathEscape(resourceID), url.PathEscape(c.cfg.SellerID))

	body := map[string]string{"text": text}
	status, err := c.doJSON(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("send buyer message for %s: status %d", resourceID, status)
	}
	return nil
}

// doJSON performs one authenticated request. A nil out discards the
// response body; 404 is returned as a status for the caller to interpret,
// not as an error.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("marketplace token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func mapOrder(dto orderDTO) order.Order {
	o := order.Order{
		ID:             dto.ID.String(),
		BuyerNickname:  dto.Buyer.Nickname,
		BuyerFirstName: dto.Buyer.FirstName,
	}
	if dto.PackID.String() != "" && dto.PackID.String() != "0" {
		o.PackID = dto.PackID.String()
	}
	if dto.Shipping.ID.String() != "" && dto.Shipping.ID.String() != "0" {
		o.ShippingID = dto.Shipping.ID.String()
	}
	if dto.DateCreated != "" {
		if ts, err := time.Parse(time.RFC3339, dto.DateCreated); err == nil {
			o.CreatedAt = ts
		}
	}
	for _, item := range dto.OrderItems {
		o.Lines = append(o.Lines, order.Line{
			Title:     item.Item.Title,
			SellerSKU: item.Item.SellerSKU,
			Quantity:  item.Quantity,
		})
	}
	return o
}

func joinZone(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	switch {
	case city == "":
		return state
	case state == "":
		return city
	default:
		return city + ", " + state
	}
}

var _ order.MarketplaceClient = (*Client)(nil)
