package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrapped store error", fmt.Errorf("outer: %w", &Error{Kind: KindThrottled, Op: "put", Err: errors.New("slow down")}), KindThrottled},
		{"direct store error", &Error{Kind: KindPermissionDenied, Op: "put", Err: errors.New("denied")}, KindPermissionDenied},
		{"plain error", errors.New("something else"), KindUnknown},
		{"nil-ish wrapped", fmt.Errorf("no store error here"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := &Error{Kind: KindTransient, Op: "put", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is() = false, want the inner error to be reachable")
	}
}

func TestClassifyAWS(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, KindThrottled},
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException"}, KindThrottled},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, KindPermissionDenied},
		{"expired token", &smithy.GenericAPIError{Code: "ExpiredToken"}, KindPermissionDenied},
		{"no such bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, KindInvalidDestination},
		{"internal error", &smithy.GenericAPIError{Code: "InternalError"}, KindTransient},
		{"unrecognized code", &smithy.GenericAPIError{Code: "TeapotError"}, KindUnknown},
		{"wrapped api error", fmt.Errorf("upload: %w", &smithy.GenericAPIError{Code: "SlowDown"}), KindThrottled},
		{"network error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindTransient},
		{"context cancel is not network", context.Canceled, KindUnknown},
		{"deadline is not network", context.DeadlineExceeded, KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyAWS(tt.err); got != tt.want {
				t.Errorf("classifyAWS() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyMinio(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, KindPermissionDenied},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, KindInvalidDestination},
		{"slow down", minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, KindThrottled},
		{"server error by status", minio.ErrorResponse{Code: "SomethingOdd", StatusCode: 500}, KindTransient},
		{"network error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindTransient},
		{"plain error", errors.New("not a minio error"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyMinio(tt.err); got != tt.want {
				t.Errorf("classifyMinio() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{429, KindThrottled},
		{503, KindThrottled},
		{500, KindTransient},
		{502, KindTransient},
		{401, KindPermissionDenied},
		{403, KindPermissionDenied},
		{404, KindInvalidDestination},
		{301, KindInvalidDestination},
		{400, KindUnknown},
		{200, KindUnknown},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
