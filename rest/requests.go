package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ClientIDHeader identifies this client to the public THORChain endpoints.
const ClientIDHeader = "x-client-id"

var apiEndpoints = map[string]string{
	"mimir":     "/mimir",
	"constants": "/thorchain/constants",
	"network":   "/network",
}

func GetEndpoint(key string) string {
	return apiEndpoints[key]
}

// EndpointURL joins a base URL with one of the known endpoints.
func EndpointURL(base, key string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(base, "/"), apiEndpoints[key])
}

// Get issues a GET with the given headers and returns the body of a 200 response.
func Get(ctx context.Context, client *http.Client, requestURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	err = checkResponseErrorCode(requestURL, resp)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

func checkResponseErrorCode(requestEndpoint string, resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error getting response for endpoint %s: Status %s Body %s", requestEndpoint, resp.Status, body)
	}

	return nil
}
