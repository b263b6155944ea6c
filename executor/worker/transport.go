package worker

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/PeladoCollado/stress/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// Request is a fully resolved HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs one HTTP exchange. An error with a zero StatusCode in the returned
// Response means no response was received at all.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

const (
	tcpDialTimeout      = 5 * time.Second
	tlsHandshakeTimeout = 5 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// HTTPTransport sends requests through a retryablehttp client with retries turned off:
// every attempt is recorded as it happened.
type HTTPTransport struct {
	client *retryablehttp.Client
}

func NewHTTPTransport(maxConns int, log logger.Interface) *HTTPTransport {
	if maxConns <= 0 {
		maxConns = 1
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = noRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = log
	client.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   tcpDialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        maxConns,
			MaxIdleConnsPerHost: maxConns,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: tlsHandshakeTimeout,
			ForceAttemptHTTP2:   true,
		},
	}
	return &HTTPTransport{client: client}
}

func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	return false, ctx.Err()
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) (Response, error) {
	var body any
	if req.Body != nil {
		body = req.Body
	}
	request, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, err
	}
	for key, value := range req.Headers {
		request.Header.Set(key, value)
	}

	response, err := t.client.Do(request)
	if err != nil {
		if response != nil && response.Body != nil {
			response.Body.Close()
		}
		return Response{}, err
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return Response{StatusCode: response.StatusCode}, fmt.Errorf("read response body: %w", err)
	}
	return Response{StatusCode: response.StatusCode, Body: data}, nil
}
