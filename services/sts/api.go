package sts

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Typed fetch operations, one per domain entity. Each delegates to the
// request executor and pipes the raw payload through the matching mapper.

func (c *Client) decodeList(body []byte) ([]map[string]interface{}, error) {
	items, err := decodeObjects(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	return items, nil
}

// GetTanks returns normalized tank snapshots.
func (c *Client) GetTanks(ctx context.Context, sel Selection) ([]Tank, error) {
	body, err := c.Request(ctx, "/v1/tanks", RequestOptions{}, sel)
	if err != nil {
		return nil, err
	}
	items, err := c.decodeList(body)
	if err != nil {
		return nil, err
	}
	tanks := make([]Tank, 0, len(items))
	for _, item := range items {
		tanks = append(tanks, MapAPITank(item))
	}
	return tanks, nil
}

// GetTank returns one tank by its vendor id, or nil when the selected
// station has no such tank.
func (c *Client) GetTank(ctx context.Context, id int, sel Selection) (*Tank, error) {
	tanks, err := c.GetTanks(ctx, sel)
	if err != nil {
		return nil, err
	}
	for i := range tanks {
		if tanks[i].ID == id {
			return &tanks[i], nil
		}
	}
	return nil, nil
}

// GetPumps returns normalized pump snapshots.
func (c *Client) GetPumps(ctx context.Context, sel Selection) ([]Pump, error) {
	body, err := c.Request(ctx, "/v1/pumps", RequestOptions{}, sel)
	if err != nil {
		return nil, err
	}
	items, err := c.decodeList(body)
	if err != nil {
		return nil, err
	}
	pumps := make([]Pump, 0, len(items))
	for _, item := range items {
		pumps = append(pumps, MapAPIPump(item))
	}
	return pumps, nil
}

// GetSales returns normalized sale records.
func (c *Client) GetSales(ctx context.Context, sel Selection) ([]Sale, error) {
	body, err := c.Request(ctx, "/v1/sales", RequestOptions{}, sel)
	if err != nil {
		return nil, err
	}
	items, err := c.decodeList(body)
	if err != nil {
		return nil, err
	}
	sales := make([]Sale, 0, len(items))
	for _, item := range items {
		sales = append(sales, MapAPISale(item))
	}
	return sales, nil
}

// GetPrices returns the POS price list for the selected trading point.
// The station number is part of the path, so it is validated here rather
// than by the generic executor rules.
func (c *Client) GetPrices(ctx context.Context, sel Selection) ([]Price, error) {
	station, ok := parseNumericID(sel.TradingPointID)
	if !ok {
		return nil, &ValidationError{
			Field:   "station",
			Message: "требуется числовой номер торговой точки: проверьте поле external_number выбранной точки",
		}
	}

	body, err := c.Request(ctx, "/v1/pos/prices/"+station, RequestOptions{}, sel)
	if err != nil {
		return nil, err
	}
	items, err := c.decodeList(body)
	if err != nil {
		return nil, err
	}
	prices := make([]Price, 0, len(items))
	for _, item := range items {
		prices = append(prices, MapAPIPrice(item))
	}
	return prices, nil
}

// GetTransactions returns normalized transactions. dateFrom/dateTo are
// passed through in the vendor's expected format; limit of zero means no
// explicit limit.
func (c *Client) GetTransactions(ctx context.Context, sel Selection, dateFrom, dateTo string, limit int) ([]Transaction, error) {
	query := url.Values{}
	if dateFrom != "" {
		query.Set("date_from", dateFrom)
	}
	if dateTo != "" {
		query.Set("date_to", dateTo)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.Request(ctx, "/v1/transactions", RequestOptions{Query: query}, sel)
	if err != nil {
		return nil, err
	}
	items, err := c.decodeList(body)
	if err != nil {
		return nil, err
	}
	transactions := make([]Transaction, 0, len(items))
	for _, item := range items {
		transactions = append(transactions, MapAPITransaction(item))
	}
	return transactions, nil
}

// GetTerminalInfo returns the normalized terminal health snapshot.
func (c *Client) GetTerminalInfo(ctx context.Context, sel Selection) (*TerminalInfo, error) {
	body, err := c.Request(ctx, "/v2/info", RequestOptions{}, sel)
	if err != nil {
		return nil, err
	}
	payload, err := decodeAny(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	info := MapAPITerminalInfo(payload)
	return &info, nil
}

// UpdatePrice pushes a new price for a fuel type to the selected station.
func (c *Client) UpdatePrice(ctx context.Context, sel Selection, fuelType string, price float64) error {
	_, err := c.Request(ctx, "/v1/prices", RequestOptions{
		Method: "POST",
		Body: map[string]interface{}{
			"fuelType": fuelType,
			"price":    price,
		},
	}, sel)
	return err
}

// IsConfigured reports whether the integration can be used at all.
func (c *Client) IsConfigured() bool {
	settings := c.store.Load()
	return settings.Enabled && settings.BaseURL != "" && settings.Username != ""
}

// Config returns a fresh read-only settings snapshot for UI displays.
func (c *Client) Config() Settings {
	return c.store.Load()
}

// SaveConfig persists updated settings.
func (c *Client) SaveConfig(settings Settings) error {
	return c.store.Save(settings)
}

// ForceRefreshToken discards the stored token and performs a login now.
// Used by the settings screen's manual refresh action.
func (c *Client) ForceRefreshToken(ctx context.Context) bool {
	return c.tokens.EnsureValidToken(ctx, true)
}
