package constants

import (
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis cache keys and TTL values for the carequeue service
// Pattern: carequeue:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for rule sets
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // 5 minutes - for job leases
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "carequeue"
)

// ================== PRIORITY RULES ==================

const (
	// Active rules of a cohort, daycare-wide rules merged in
	CACHE_KEY_RULES_ACTIVE = CACHE_PREFIX + ":rules:active:daycare:" // + daycare-id:program:<id|none>
)

const (
	TTL_RULES_ACTIVE = TTL_DYNAMIC_MEDIUM
)

// ================== LOCKS ==================

const (
	LOCK_KEY_JOB = CACHE_PREFIX + ":locks:job:" // + job-name
)

const (
	TTL_JOB_LOCK = TTL_DYNAMIC_SHORT
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + bucket:client
)

// ================== HELPER FUNCTIONS ==================

// BuildActiveRulesKey -> "carequeue:rules:active:daycare:<id>:program:none"
func BuildActiveRulesKey(daycareID, programID string) string {
	if programID == "" {
		programID = "none"
	}
	return CACHE_KEY_RULES_ACTIVE + daycareID + ":program:" + programID
}

// BuildDaycareRulesPattern matches every cached rule set of a daycare.
func BuildDaycareRulesPattern(daycareID string) string {
	return CACHE_KEY_RULES_ACTIVE + daycareID + ":*"
}

func BuildJobLockKey(job string) string {
	return LOCK_KEY_JOB + job
}
