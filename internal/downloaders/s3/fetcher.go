package s3

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const fallbackRegion = "us-east-1"

// Fetcher streams objects addressed as s3://bucket/key. The AWS config is
// loaded on first use so http-only batches never touch credentials.
type Fetcher struct {
	profile        string
	endpoint       string
	connectTimeout time.Duration

	mu      sync.Mutex
	base    *aws.Config
	clients map[string]*s3.Client // by region
	regions map[string]string     // by bucket
}

// NewFetcher builds a fetcher for the given shared-config profile. A non-empty
// endpoint points the client at an S3-compatible store with path-style URLs.
func NewFetcher(profile, endpoint string, connectTimeout time.Duration) *Fetcher {
	return &Fetcher{
		profile:        profile,
		endpoint:       endpoint,
		connectTimeout: connectTimeout,
		clients:        make(map[string]*s3.Client),
		regions:        make(map[string]string),
	}
}

func (f *Fetcher) Open(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	client, err := f.clientFor(ctx, bucket)
	if err != nil {
		return nil, classifyError(err, uri)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError(err, uri)
	}
	log.Debug().Str("op", "s3/fetcher").Msgf("Opened s3://%s/%s", bucket, key)
	return out.Body, nil
}

// clientFor returns a client for the bucket's region. Lookups run without
// the lock; concurrent first lookups for one bucket may both hit the network.
func (f *Fetcher) clientFor(ctx context.Context, bucket string) (*s3.Client, error) {
	base, err := f.config(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	region, ok := f.regions[bucket]
	f.mu.Unlock()
	if !ok {
		region, err = manager.GetBucketRegion(ctx, f.clientForRegion(base, base.Region), bucket)
		if err != nil {
			return nil, fmt.Errorf("error resolving region for bucket %s: %w", bucket, err)
		}
		log.Debug().Str("op", "s3/fetcher").Msgf("Bucket %s is in %s", bucket, region)
		f.mu.Lock()
		f.regions[bucket] = region
		f.mu.Unlock()
	}
	return f.clientForRegion(base, region), nil
}

func (f *Fetcher) clientForRegion(base aws.Config, region string) *s3.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if client, ok := f.clients[region]; ok {
		return client
	}
	client := s3.NewFromConfig(base, func(o *s3.Options) {
		o.Region = region
		if f.endpoint != "" {
			o.BaseEndpoint = aws.String(f.endpoint)
			o.UsePathStyle = true
		}
	})
	f.clients[region] = client
	return client
}

func (f *Fetcher) config(ctx context.Context) (aws.Config, error) {
	f.mu.Lock()
	if f.base != nil {
		defer f.mu.Unlock()
		return *f.base, nil
	}
	f.mu.Unlock()

	httpClient := awshttp.NewBuildableClient().WithDialerOptions(func(d *net.Dialer) {
		d.Timeout = f.connectTimeout
	})
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(httpClient),
		config.WithRetryMaxAttempts(1), // workers own the retry policy
	}
	if f.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(f.profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = fallbackRegion
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.base == nil {
		f.base = &cfg
	}
	return *f.base, nil
}
