/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package ddbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/scribd/Lucid-sub001/query"
)

// StreamResult is one item delivered by Stream, with per-item error and
// position metadata.
type StreamResult[E any] struct {
	Item  E
	Error error
	Meta  StreamMeta
}

// StreamMeta describes where an item sat in the stream.
type StreamMeta struct {
	Index      int64
	PageNumber int
	Timestamp  time.Time
}

// StreamProgress is handed to the progress callback after each page.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	Errors         []error
	StartTime      time.Time
	CurrentRate    float64
}

// StreamOptions configures Stream behavior.
type StreamOptions struct {
	BufferSize      int
	MaxRetries      int
	RetryBackoff    time.Duration
	PageSize        int32
	ProgressHandler func(StreamProgress)
	// ErrorHandler decides whether a page-level failure stops the
	// stream. Return true to continue.
	ErrorHandler func(error) bool
}

// StreamOption is a functional option for configuring a stream.
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns the defaults Stream starts from.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize:   100,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		PageSize:     100,
	}
}

// WithBufferSize sets the result channel buffer size.
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) { opts.BufferSize = size }
}

// WithMaxRetries sets the retry attempts for transient page failures.
func WithMaxRetries(retries int) StreamOption {
	return func(opts *StreamOptions) { opts.MaxRetries = retries }
}

// WithRetryBackoff sets the backoff between page retries.
func WithRetryBackoff(backoff time.Duration) StreamOption {
	return func(opts *StreamOptions) { opts.RetryBackoff = backoff }
}

// WithPageSize sets the items requested per page.
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) { opts.PageSize = size }
}

// WithProgressHandler sets a per-page progress callback.
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) { opts.ProgressHandler = handler }
}

// WithErrorHandler sets the page-failure handler.
func WithErrorHandler(handler func(error) bool) StreamOption {
	return func(opts *StreamOptions) { opts.ErrorHandler = handler }
}

// Stream walks every entity of this store's type matching the query and
// delivers them one at a time, without holding the full result set in
// memory. Intended for bulk work like migrations and warm-up, not for
// the read path; Search remains the way reads reach this tier.
func (s *Store[E]) Stream(ctx context.Context, q query.Query, opts ...StreamOption) <-chan StreamResult[E] {
	options := DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	resultCh := make(chan StreamResult[E], options.BufferSize)
	go s.streamWorker(ctx, q, options, resultCh)
	return resultCh
}

func (s *Store[E]) streamWorker(ctx context.Context, q query.Query, options StreamOptions, resultCh chan<- StreamResult[E]) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var pageErrors []error

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			Errors:         pageErrors,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	keyCond := fmt.Sprintf("%s = :entityType", attrEntityType)
	input := &sdk.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(entityTypeIndex),
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityType": &types.AttributeValueMemberS{Value: s.entityType},
		},
		Limit: aws.Int32(options.PageSize),
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := s.queryPageWithRetry(ctx, input, options)
		if err != nil {
			wrapped := wrapCallError("Query", err)
			if options.ErrorHandler != nil && options.ErrorHandler(wrapped) {
				pageErrors = append(pageErrors, wrapped)
				continue
			}
			select {
			case <-ctx.Done():
			case resultCh <- StreamResult[E]{
				Error: wrapped,
				Meta:  StreamMeta{Index: itemIndex, PageNumber: pageNumber, Timestamp: time.Now()},
			}:
			}
			return
		}

		pageNumber++
		for _, item := range out.Items {
			meta := StreamMeta{Index: itemIndex, PageNumber: pageNumber, Timestamp: time.Now()}
			itemIndex++

			e, decodeErr := s.decodeItem(item)
			res := StreamResult[E]{Item: e, Error: decodeErr, Meta: meta}
			if decodeErr == nil && !q.Matches(e) {
				continue
			}
			if decodeErr != nil {
				pageErrors = append(pageErrors, decodeErr)
			}

			select {
			case <-ctx.Done():
				return
			case resultCh <- res:
			}
		}

		reportProgress()

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	reportProgress()
}

func (s *Store[E]) queryPageWithRetry(ctx context.Context, input *sdk.QueryInput, options StreamOptions) (*sdk.QueryOutput, error) {
	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := s.client.Query(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}
		if attempt == options.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * options.RetryBackoff
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("query failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isRetryableError reports whether a DynamoDB error is transient.
func isRetryableError(err error) bool {
	switch err.(type) {
	case *types.ProvisionedThroughputExceededException:
		return true
	case *types.RequestLimitExceeded:
		return true
	case *types.InternalServerError:
		return true
	}

	if awsErr, ok := err.(interface{ IsRetryable() bool }); ok {
		return awsErr.IsRetryable()
	}
	return false
}
