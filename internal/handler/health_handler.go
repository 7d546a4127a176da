package handler

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/database"
	"github.com/stemsi/intervue-backend/internal/response"
)

const healthTimeout = 3 * time.Second

// HealthHandler reports liveness and runtime statistics.
type HealthHandler struct {
	pool         *pgxpool.Pool
	rdb          *redis.Client
	recordingDir string
	startTime    time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, recordingDir string) *HealthHandler {
	return &HealthHandler{
		pool:         pool,
		rdb:          rdb,
		recordingDir: recordingDir,
		startTime:    time.Now(),
	}
}

// Health godoc
// GET /health
// Reports whether PostgreSQL and Redis are reachable.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := database.Health(ctx, h.pool, h.rdb)
	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(status, gin.H{"status": checks})
}

type runtimeStats struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Host
	MemUsedBytes  uint64 `json:"mem_used_bytes"`
	MemTotalBytes uint64 `json:"mem_total_bytes"`

	// Recordings volume
	RecordingDiskUsedBytes  uint64  `json:"recording_disk_used_bytes"`
	RecordingDiskTotalBytes uint64  `json:"recording_disk_total_bytes"`
	RecordingDiskPercent    float64 `json:"recording_disk_percent"`

	// Go Application
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	NumGC       uint32 `json:"num_gc"`
	AppRSSBytes uint64 `json:"app_rss_bytes"`
	GoVersion   string `json:"go_version"`

	// Worker Queues
	QueueEndedInterviews int64 `json:"queue_ended_interviews"`
	QueueInterviewEvents int64 `json:"queue_interview_events"`
}

// Stats godoc
// GET /health/stats
// Returns runtime, recording volume and worker queue statistics.
func (h *HealthHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

func (h *HealthHandler) collect(ctx context.Context) runtimeStats {
	m := runtimeStats{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
	}

	// ── Memory ──
	if memTotal, memAvail, err := readMemInfo(); err == nil && memTotal > 0 {
		m.MemTotalBytes = memTotal
		m.MemUsedBytes = memTotal - memAvail
	}

	// ── Recording volume ──
	if total, free, err := readDisk(h.recordingDir); err == nil && total > 0 {
		m.RecordingDiskTotalBytes = total
		m.RecordingDiskUsedBytes = total - free
		m.RecordingDiskPercent = float64(m.RecordingDiskUsedBytes) / float64(total) * 100
	}

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.NumGC = ms.NumGC
	m.AppRSSBytes, _ = readProcessRSS()

	// ── Worker Queues (pipelined LLEN) ──
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	pipe := h.rdb.Pipeline()
	endedCmd := pipe.LLen(ctx, config.WorkerKey.PersistEndedInterviewsQueue)
	eventsCmd := pipe.LLen(ctx, config.WorkerKey.PersistInterviewEventsQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.QueueEndedInterviews, _ = endedCmd.Result()
		m.QueueInterviewEvents, _ = eventsCmd.Result()
	}

	return m
}

// ---------- /proc Readers ----------

// readMemInfo parses /proc/meminfo for MemTotal and MemAvailable.
func readMemInfo() (total, available uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	found := 0
	for scanner.Scan() && found < 2 {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			total = parseMemInfoValue(line)
			found++
		} else if strings.HasPrefix(line, "MemAvailable:") {
			available = parseMemInfoValue(line)
			found++
		}
	}
	return total, available, nil
}

func parseMemInfoValue(line string) uint64 {
	// Format: "MemTotal:       16384000 kB"
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	val, _ := strconv.ParseUint(fields[1], 10, 64)
	return val * 1024
}

// readDisk uses syscall.Statfs to get disk usage of the volume holding path.
func readDisk(path string) (total, free uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// readProcessRSS reads VmRSS from /proc/self/status.
func readProcessRSS() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			return parseMemInfoValue(line), nil
		}
	}
	return 0, fmt.Errorf("VmRSS not found")
}

// ---------- Helpers ----------

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
