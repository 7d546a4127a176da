package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateTokenKey returns the cache key holding a candidate's active token ID.
func (r *CacheKeyStruct) CandidateTokenKey(candidateID int, jti string) string {
	return fmt.Sprintf("candidate:%d:token:%s", candidateID, jti)
}

// InterviewConfigKey returns the cache key for an interview's session config
func (r *CacheKeyStruct) InterviewConfigKey(interviewID string) string {
	return fmt.Sprintf("interview:%s:config", interviewID)
}

// InterviewLiveKey marks an interview that currently has a stream attached.
func (r *CacheKeyStruct) InterviewLiveKey(interviewID string) string {
	return fmt.Sprintf("interview:%s:live", interviewID)
}

// InterviewEventsChannel returns the Redis PubSub channel for an interview's controller events
func (r *CacheKeyStruct) InterviewEventsChannel(interviewID string) string {
	return fmt.Sprintf("interview:%s:events", interviewID)
}

var CacheKey = NewCacheKeyStruct()
