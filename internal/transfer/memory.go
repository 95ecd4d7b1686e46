package transfer

import (
	"os"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// EnvMemoryLimit overrides memory-limit detection (quantity syntax,
// e.g. "512Mi").
const EnvMemoryLimit = "ASSET_PIPELINE_MEMORY_LIMIT"

const (
	defaultConcurrency = 8
	memoryShare        = 0.8

	cgroupV2LimitPath = "/sys/fs/cgroup/memory.max"
	cgroupV1LimitPath = "/sys/fs/cgroup/memory/memory.limit_in_bytes"
)

// memoryLimitBytes resolves the process memory limit in bytes: an explicit
// override, the environment, then the container cgroup (v2 before v1).
// Zero means the limit could not be determined.
func memoryLimitBytes(override string) int64 {
	for _, raw := range []string{override, os.Getenv(EnvMemoryLimit)} {
		if raw == "" {
			continue
		}

		if q, err := resource.ParseQuantity(raw); err == nil {
			return q.Value()
		}
	}

	for _, path := range []string{cgroupV2LimitPath, cgroupV1LimitPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		raw := strings.TrimSpace(string(data))
		if raw == "" || raw == "max" {
			continue
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || n >= 1<<62 {
			// cgroup v1 reports "unlimited" as a near-MaxInt64 page multiple.
			continue
		}

		return n
	}

	return 0
}

// chunkConcurrency bounds parallel chunk transfers so that
// concurrency times chunkSize stays within 80% of the memory limit. An
// unknown limit gets the default of 8.
func chunkConcurrency(limit, chunkSize int64) int {
	if limit <= 0 || chunkSize <= 0 {
		return defaultConcurrency
	}

	n := int(int64(float64(limit)*memoryShare) / chunkSize)

	if n < 1 {
		return 1
	}

	if n > defaultConcurrency {
		return defaultConcurrency
	}

	return n
}
