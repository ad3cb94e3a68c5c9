// Package fetch downloads the transactions of one address from a BigDipper
// GraphQL indexer, with retries and resumable progress.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const messagesByAddressQuery = `
query GetMessagesByAddress($addresses: _text, $limit: bigint = 100, $offset: bigint = 0, $types: _text = "{}") {
    messagesByAddress: messages_by_address(
        args: {
            addresses: $addresses,
            types: $types,
            limit: $limit,
            offset: $offset
        }
    ) {
        transaction {
            height
            hash
            success
            messages
            logs
            fee
            block {
                height
                timestamp
            }
        }
    }
}`

// BatchSource returns one page of raw transaction envelopes.
type BatchSource interface {
	FetchBatch(ctx context.Context, offset int) ([]jsoniter.RawMessage, error)
}

// GraphQLClient queries messages_by_address for a single account.
type GraphQLClient struct {
	Endpoint  string
	Address   string
	BatchSize int
	HTTP      *http.Client
}

func NewGraphQLClient(endpoint, address string, batchSize int, timeout time.Duration) *GraphQLClient {
	return &GraphQLClient{
		Endpoint:  endpoint,
		Address:   address,
		BatchSize: batchSize,
		HTTP:      newHTTPClient(timeout),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		MessagesByAddress []jsoniter.RawMessage `json:"messagesByAddress"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// FetchBatch requests up to BatchSize envelopes starting at offset.
func (c *GraphQLClient) FetchBatch(ctx context.Context, offset int) ([]jsoniter.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{
		Query: messagesByAddressQuery,
		Variables: map[string]any{
			"addresses": "{" + c.Address + "}",
			"limit":     c.BatchSize,
			"offset":    offset,
			"types":     "{}",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("FetchBatch: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("FetchBatch: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchBatch: offset %d: %w", offset, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("FetchBatch: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("FetchBatch: offset %d: unexpected status %s", offset, resp.Status)
	}

	var out graphQLResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("FetchBatch: decoding response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("FetchBatch: GraphQL errors: %s", out.Errors[0].Message)
	}
	return out.Data.MessagesByAddress, nil
}

var _ BatchSource = (*GraphQLClient)(nil)
