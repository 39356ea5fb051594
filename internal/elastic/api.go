package elastic

import (
	"context"
	"net/http"
	"net/url"
)

// Document is the body of GET {index}/_doc/{id}.
type Document struct {
	Index   string         `json:"_index"`
	ID      string         `json:"_id"`
	Version *int64         `json:"_version,omitempty"`
	Found   bool           `json:"found"`
	Source  map[string]any `json:"_source"`
}

// CatIndex is one row of _cat/indices. Counts arrive as strings.
type CatIndex struct {
	Index     string `json:"index"`
	DocsCount any    `json:"docs.count"`
	StoreSize any    `json:"store.size"`
}

// ClusterHealth is the subset of _cluster/health the gateway reports.
type ClusterHealth struct {
	ClusterName         string `json:"cluster_name"`
	Status              string `json:"status"`
	NumberOfNodes       int    `json:"number_of_nodes"`
	ActivePrimaryShards int    `json:"active_primary_shards"`
	ActiveShards        int    `json:"active_shards"`
}

// Info is the subset of the root endpoint response the gateway reports.
type Info struct {
	Name        string `json:"name"`
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

// Search runs POST {index}/_search and returns the decoded response.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.Do(ctx, http.MethodPost, indexPath(index, "_search"), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count runs POST {index}/_count. An empty body counts every document.
func (c *Client) Count(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	var payload any
	if len(body) > 0 {
		payload = body
	}
	var out map[string]any
	if err := c.Do(ctx, http.MethodPost, indexPath(index, "_count"), payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument runs GET {index}/_doc/{id}. The id is path-escaped.
func (c *Client) GetDocument(ctx context.Context, index, id string) (*Document, error) {
	var doc Document
	if err := c.Do(ctx, http.MethodGet, indexPath(index, "_doc")+"/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CatIndices lists indices with their document count and store size.
func (c *Client) CatIndices(ctx context.Context) ([]CatIndex, error) {
	var rows []CatIndex
	if err := c.Do(ctx, http.MethodGet, "_cat/indices?format=json&h=index,docs.count,store.size", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ClusterHealth runs GET _cluster/health.
func (c *Client) ClusterHealth(ctx context.Context) (*ClusterHealth, error) {
	var h ClusterHealth
	if err := c.Do(ctx, http.MethodGet, "_cluster/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Info runs GET on the base URL.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.Do(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SearchStats runs GET _stats/search across all indices.
func (c *Client) SearchStats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.Do(ctx, http.MethodGet, "_stats/search", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IndexSettings runs GET {index}/_settings.
func (c *Client) IndexSettings(ctx context.Context, index string) (map[string]any, error) {
	return c.getMap(ctx, indexPath(index, "_settings"))
}

// IndexMapping runs GET {index}/_mapping.
func (c *Client) IndexMapping(ctx context.Context, index string) (map[string]any, error) {
	return c.getMap(ctx, indexPath(index, "_mapping"))
}

// IndexStats runs GET {index}/_stats.
func (c *Client) IndexStats(ctx context.Context, index string) (map[string]any, error) {
	return c.getMap(ctx, indexPath(index, "_stats"))
}

func (c *Client) getMap(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func indexPath(index, api string) string {
	return url.PathEscape(index) + "/" + api
}
