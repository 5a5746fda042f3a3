package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

// Kind classifies a store failure for retry decisions.
type Kind string

const (
	// KindThrottled means the store asked us to slow down. Retryable.
	KindThrottled Kind = "throttled"
	// KindTransient covers 5xx responses and network failures. Retryable.
	KindTransient Kind = "transient"
	// KindPermissionDenied means the credentials cannot perform the operation.
	KindPermissionDenied Kind = "permission_denied"
	// KindInvalidDestination means the bucket or key is unusable.
	KindInvalidDestination Kind = "invalid_destination"
	// KindUnknown is everything else; treated as non-retryable.
	KindUnknown Kind = "unknown"
)

// Error wraps a backend failure with its classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify returns the Kind of a store error, or KindUnknown for anything it
// cannot recognise (including non-store errors).
func Classify(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// throttleCodes are API error codes that signal request-rate pushback.
var throttleCodes = map[string]bool{
	"SlowDown":                 true,
	"Throttling":               true,
	"ThrottlingException":      true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
}

// deniedCodes are API error codes that signal credential or policy problems.
var deniedCodes = map[string]bool{
	"AccessDenied":                 true,
	"InvalidAccessKeyId":           true,
	"SignatureDoesNotMatch":        true,
	"AccountProblem":               true,
	"AllAccessDisabled":            true,
	"NotSignedUp":                  true,
	"InvalidSecurity":              true,
	"ExpiredToken":                 true,
	"InvalidToken":                 true,
	"AuthorizationHeaderMalformed": true,
}

// destinationCodes are API error codes that mean the target cannot exist.
var destinationCodes = map[string]bool{
	"NoSuchBucket":      true,
	"InvalidBucketName": true,
	"PermanentRedirect": true,
	"BucketRegionError": true,
	"KeyTooLongError":   true,
}

// classifyAWS maps an aws-sdk-go-v2 error into a Kind.
func classifyAWS(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code]:
			return KindThrottled
		case deniedCodes[code]:
			return KindPermissionDenied
		case destinationCodes[code]:
			return KindInvalidDestination
		case code == "InternalError" || code == "ServiceUnavailable" || code == "RequestTimeout":
			return KindTransient
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return classifyStatus(respErr.HTTPStatusCode())
	}

	if isNetworkError(err) {
		return KindTransient
	}
	return KindUnknown
}

// classifyMinio maps a minio-go error into a Kind.
func classifyMinio(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		switch {
		case throttleCodes[resp.Code]:
			return KindThrottled
		case deniedCodes[resp.Code]:
			return KindPermissionDenied
		case destinationCodes[resp.Code]:
			return KindInvalidDestination
		}
		return classifyStatus(resp.StatusCode)
	}

	if isNetworkError(err) {
		return KindTransient
	}
	return KindUnknown
}

func classifyStatus(status int) Kind {
	switch {
	case status == 429 || status == 503:
		return KindThrottled
	case status >= 500:
		return KindTransient
	case status == 401 || status == 403:
		return KindPermissionDenied
	case status == 404 || status == 301:
		return KindInvalidDestination
	default:
		return KindUnknown
	}
}

// isNetworkError reports whether err is a connection-level failure (refused,
// reset, DNS, dial timeout). Context cancellation is deliberately excluded:
// the task layer owns deadline and cancel semantics.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
