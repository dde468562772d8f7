package services

import (
	"context"
	"encoding/json"
	"time"
)

const statsCacheKey = "uploade:stats"

// Stats is the public repository summary.
type Stats struct {
	TotalExperiences int     `json:"total_experiences"`
	TotalAgents      int     `json:"total_agents"`
	StorageMB        float64 `json:"storage_mb"`
}

// StatsService computes repository-wide totals, with a short Redis cache in
// front when one is configured.
type StatsService struct {
	index *IndexService
	redis *RedisService
	ttl   time.Duration
}

// NewStatsService builds a stats reader; redis may be nil.
func NewStatsService(index *IndexService, redis *RedisService) *StatsService {
	return &StatsService{index: index, redis: redis, ttl: 30 * time.Second}
}

// Current returns live (or recently cached) totals.
func (s *StatsService) Current(ctx context.Context) Stats {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, statsCacheKey); err == nil {
			var stats Stats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return stats
			}
		}
	}

	stats := Stats{
		TotalExperiences: s.index.Len(),
		TotalAgents:      s.index.AgentCount(),
		StorageMB:        float64(s.index.TotalSize()) / (1024 * 1024),
	}

	if s.redis != nil {
		if payload, err := json.Marshal(stats); err == nil {
			s.redis.Set(ctx, statsCacheKey, payload, s.ttl)
		}
	}
	return stats
}
