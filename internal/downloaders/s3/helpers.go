package s3

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tanq16/trickle/internal/utils"
)

func parseS3URI(uri *url.URL) (string, string, error) {
	bucket := uri.Host
	key := strings.TrimPrefix(uri.Path, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid S3 object URL %q", uri.String())
	}
	return bucket, key, nil
}

// classifyError maps missing buckets and keys onto utils.ErrNotFound so the
// worker skips them without retrying.
func classifyError(err error, uri *url.URL) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		noBucket *types.NoSuchBucket
		bnf      manager.BucketNotFound
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) || errors.As(err, &bnf) {
		return fmt.Errorf("%s: %w", uri, utils.ErrNotFound)
	}
	return fmt.Errorf("error getting object %s: %w", uri, err)
}
