package utils

import (
	"net"
	"net/http"
	"time"
)

type HTTPClientConfig struct {
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration // wait for response headers, 0 waits indefinitely
	KATimeout       time.Duration
	UserAgent       string
	Headers         map[string]string
}

type TrickleHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewTrickleHTTPClient bounds connection setup, and the wait for headers when
// ResponseTimeout is set. There is no overall request timeout because a
// throttled body may legitimately take hours.
func NewTrickleHTTPClient(cfg HTTPClientConfig) *TrickleHTTPClient {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.KATimeout <= 0 {
		cfg.KATimeout = 90 * time.Second
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
	}
	return &TrickleHTTPClient{
		client: &http.Client{Transport: transport},
		config: cfg,
	}
}

func (c *TrickleHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}
