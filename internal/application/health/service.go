package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"farmtrade-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is satisfied by *sql.DB. A nil pinger is reported as disconnected.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	AllocMB       uint64 `json:"allocMb"`
	HeapInuseMB   uint64 `json:"heapInuseMb"`
	Goroutines    int    `json:"goroutines"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	RecentErrors    int64                  `json:"recentErrors"`
	LastRequest     map[string]interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// CollectHealth pings the database and Redis and reads the request counters kept by
// middleware.HealthMarker. Status is "ok" only when both dependencies answer.
func CollectHealth(ctx context.Context, rdb redis.UniversalClient, db DBPinger) Report {
	report := Report{Dependencies: make(map[string]DepStatus, 2)}

	report.Dependencies["database"] = ping(db != nil, func() error {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pctx)
	})
	report.Dependencies["redis"] = ping(rdb != nil, func() error {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return rdb.Ping(pctx).Err()
	})

	started := time.Now().UnixMilli()
	report.Traffic = TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	if report.Dependencies["redis"].Status == "connected" {
		report.Traffic, started = readTraffic(ctx, rdb, started)
	}
	report.Runtime = readRuntime(started)

	report.Status = "issue"
	if report.Dependencies["database"].Status == "connected" && report.Dependencies["redis"].Status == "connected" {
		report.Status = "ok"
	}
	return report
}

func ping(configured bool, fn func() error) DepStatus {
	if !configured {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if err := fn(); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}

// readTraffic returns the counters and the recorded start time, seeding it on first use.
func readTraffic(ctx context.Context, rdb redis.UniversalClient, now int64) (TrafficInfo, int64) {
	pipe := rdb.Pipeline()
	total := pipe.Get(ctx, middleware.KeyReqTotal)
	failed := pipe.Get(ctx, middleware.KeyReqErrors)
	resTime := pipe.Get(ctx, middleware.KeyResTime)
	resCount := pipe.Get(ctx, middleware.KeyResCount)
	startedAt := pipe.Get(ctx, middleware.KeyStartTime)
	lastReq := pipe.Get(ctx, middleware.KeyLastReq)
	errLog := pipe.LLen(ctx, middleware.KeyErrorLog)
	_, _ = pipe.Exec(ctx)

	info := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	info.TotalRequests, _ = strconv.Atoi(total.Val())
	info.FailedCount, _ = strconv.Atoi(failed.Val())
	info.SuccessCount = info.TotalRequests - info.FailedCount
	if info.TotalRequests > 0 {
		info.SuccessRate = strconv.FormatFloat(float64(info.SuccessCount)/float64(info.TotalRequests)*100, 'f', 1, 64)
	}
	sum, _ := strconv.ParseFloat(resTime.Val(), 64)
	if n, _ := strconv.Atoi(resCount.Val()); n > 0 {
		info.AvgResponseTime = strconv.FormatFloat(sum/float64(n), 'f', 2, 64)
	}
	info.RecentErrors = errLog.Val()
	if raw := lastReq.Val(); raw != "" {
		_ = json.Unmarshal([]byte(raw), &info.LastRequest)
	}

	started := now
	if t, err := strconv.ParseInt(startedAt.Val(), 10, 64); err == nil {
		started = t
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, now, 0)
	}
	return info, started
}

func readRuntime(startedMs int64) RuntimeInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startedMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	return RuntimeInfo{
		UptimeSeconds: uptime,
		AllocMB:       m.Alloc / 1024 / 1024,
		HeapInuseMB:   m.HeapInuse / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
}
