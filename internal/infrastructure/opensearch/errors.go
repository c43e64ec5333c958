// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/httpclient"
)

// MapHTTPError maps httpclient errors to domain errors with proper context logging
func MapHTTPError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var retryableErr *httpclient.RetryableError
	if stderrors.As(err, &retryableErr) {
		slog.WarnContext(ctx, "OpenSearch HTTP error occurred",
			"status_code", retryableErr.StatusCode,
			"message", retryableErr.Message,
		)

		switch retryableErr.StatusCode {
		case http.StatusNotFound:
			return errors.NewNotFound("resource not found in OpenSearch", err)
		case http.StatusConflict:
			return errors.NewConflict("version conflict in OpenSearch", err)
		case http.StatusBadRequest:
			return errors.NewValidation(fmt.Sprintf("OpenSearch rejected the request: %s", retryableErr.Message), err)
		case http.StatusTooManyRequests:
			return errors.NewServiceUnavailable("OpenSearch rate limited", err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return errors.NewServiceUnavailable("OpenSearch service unavailable", err)
		default:
			slog.ErrorContext(ctx, "unexpected OpenSearch HTTP status code",
				"status_code", retryableErr.StatusCode,
				"message", retryableErr.Message,
			)
			return errors.NewUnexpected("OpenSearch API error", err)
		}
	}

	slog.ErrorContext(ctx, "OpenSearch request failed with non-HTTP error",
		"error", err.Error(),
	)
	return errors.NewServiceUnavailable("OpenSearch request failed", err)
}

func isNotFound(err error) bool {
	var notFound errors.NotFound
	return stderrors.As(err, &notFound)
}
