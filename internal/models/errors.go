package models

import "errors"

var (
	// ErrSourceUnavailable means a connector failed or timed out; posts fetched before the failure may still be returned
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoDataAvailable means every selected connector failed
	ErrNoDataAvailable = errors.New("no data available")
	// ErrClassification means the classifier call itself failed
	ErrClassification = errors.New("classification failed")
	// ErrInvalidQuery means an analyze request was rejected before any network call
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidSubmission means a feedback submission was rejected before persisting
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrStoreWrite means case persistence failed; the caller should retry
	ErrStoreWrite = errors.New("store write failed")
	ErrCaseNotFound      = errors.New("case not found")
	ErrAlreadyClassified = errors.New("case already classified")
	// ErrCaseNotClassified means the case is still Unclassified and cannot be resolved yet
	ErrCaseNotClassified = errors.New("case not classified yet")
	ErrChatUnavailable   = errors.New("assistant unavailable")
)
