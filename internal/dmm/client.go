package dmm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

// Query описывает параметры одного запроса ItemList.
type Query struct {
	Sort    string
	Period  string
	GteDate time.Time
	Hits    int
}

// Floor - одна запись из FloorList.
type Floor struct {
	Site    string
	Service string
	ID      string
	Code    string
	Name    string
}

// Client инкапсулирует работу с партнёрским API (ItemList, FloorList).
type Client struct {
	endpoint    string
	apiID       string
	affiliateID string
	cfg         config.Affiliate
	client      *http.Client
}

// NewClient создаёт клиента. apiID и affiliateID обязательны.
func NewClient(cfg config.Affiliate, apiID, affiliateID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiID:       apiID,
		affiliateID: affiliateID,
		cfg:         cfg,
		client:      httpClient,
	}
}

type itemListResponse struct {
	Result struct {
		Status      manga.FlexString   `json:"status"`
		ResultCount int                `json:"result_count"`
		Message     string             `json:"message"`
		Items       []manga.RawListing `json:"items"`
	} `json:"result"`
}

// ItemList выполняет запрос списка товаров. Ответ без result.items считается ошибкой.
func (c *Client) ItemList(ctx context.Context, q Query) ([]manga.RawListing, error) {
	items, _, err := c.itemList(ctx, q)
	return items, err
}

// Ping проверяет учётные данные и возвращает result_count пробного запроса.
func (c *Client) Ping(ctx context.Context) (int, error) {
	_, count, err := c.itemList(ctx, Query{Sort: "date", Hits: 10})
	return count, err
}

func (c *Client) itemList(ctx context.Context, q Query) ([]manga.RawListing, int, error) {
	params := c.baseParams()
	params.Set("site", c.cfg.Site)
	params.Set("service", c.cfg.Service)
	params.Set("floor", c.cfg.Floor)

	hits := q.Hits
	if hits <= 0 {
		hits = c.cfg.Hits
	}
	if hits <= 0 {
		hits = 100
	}
	params.Set("hits", strconv.Itoa(hits))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Period != "" {
		params.Set("period", q.Period)
	}
	if !q.GteDate.IsZero() {
		params.Set("gte_date", q.GteDate.Format("2006-01-02T15:04:05"))
	}

	var resp itemListResponse
	if err := c.get(ctx, "ItemList", params, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Result.Items == nil {
		if resp.Result.Message != "" {
			return nil, 0, fmt.Errorf("item list: api status %s: %s", resp.Result.Status, resp.Result.Message)
		}
		return nil, 0, fmt.Errorf("item list: response has no result.items")
	}
	return resp.Result.Items, resp.Result.ResultCount, nil
}

type floorListResponse struct {
	Result struct {
		Site []struct {
			Name    string `json:"name"`
			Code    string `json:"code"`
			Service []struct {
				Name  string `json:"name"`
				Code  string `json:"code"`
				Floor []struct {
					ID   manga.FlexString `json:"id"`
					Name string           `json:"name"`
					Code string           `json:"code"`
				} `json:"floor"`
			} `json:"service"`
		} `json:"site"`
	} `json:"result"`
}

// FloorList возвращает все доступные разделы (site/service/floor).
func (c *Client) FloorList(ctx context.Context) ([]Floor, error) {
	var resp floorListResponse
	if err := c.get(ctx, "FloorList", c.baseParams(), &resp); err != nil {
		return nil, err
	}

	var floors []Floor
	for _, site := range resp.Result.Site {
		for _, service := range site.Service {
			for _, floor := range service.Floor {
				floors = append(floors, Floor{
					Site:    site.Name,
					Service: service.Code,
					ID:      string(floor.ID),
					Code:    floor.Code,
					Name:    floor.Name,
				})
			}
		}
	}
	return floors, nil
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("api_id", c.apiID)
	params.Set("affiliate_id", c.affiliateID)
	params.Set("output", "json")
	return params
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out interface{}) error {
	u := c.endpoint + "/" + method + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
