package client

import "time"

// Observer is told about every storefront call. Implementations must be safe
// for concurrent use.
type Observer interface {
	// RequestDone reports a response received with the given status code.
	RequestDone(operation string, statusCode int, took time.Duration)
	// RequestFailed reports a request that got no response.
	RequestFailed(operation string, took time.Duration)
	CacheHit(operation string)
	CacheMiss(operation string)
	// Shared reports a call answered by another in-flight request.
	Shared(operation string)
}

type nopObserver struct{}

func (nopObserver) RequestDone(string, int, time.Duration) {}
func (nopObserver) RequestFailed(string, time.Duration)    {}
func (nopObserver) CacheHit(string)                        {}
func (nopObserver) CacheMiss(string)                       {}
func (nopObserver) Shared(string)                          {}
