package constants

import "time"

var Routes = struct {
	Pipelines       string
	PipelineDetails string
	Fallback        string
}{
	Pipelines:       "/pipelines",
	PipelineDetails: "/pipelines/details/",
	Fallback:        "#/pipelines", // 목록 화면으로 이동
}

var PageConfig = struct {
	Title        string
	RefreshID    string
	RefreshTitle string
	RefreshHint  string
	RefreshIcon  string
}{
	Title:        "Getting Started",
	RefreshID:    "refresh",
	RefreshTitle: "Refresh",
	RefreshHint:  "Refresh the list",
	RefreshIcon:  "refresh",
}

var APIConfig = struct {
	PipelinesPath   string
	HealthzPath     string
	LookupPageSize  int
	DefaultTimeout  time.Duration
	MaxErrorBodyLen int
}{
	PipelinesPath:   "/apis/v2beta1/pipelines",
	HealthzPath:     "/apis/v2beta1/healthz",
	LookupPageSize:  10, // 모호한 결과를 감지할 만큼만 조회
	DefaultTimeout:  10 * time.Second,
	MaxErrorBodyLen: 512,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,                // 3회 연속 실패 시 Circuit OPEN
	ResetTimeout:        30 * time.Second, // 기본 재시도 대기 시간 (30초)
	HealthCheckInterval: 1 * time.Minute,  // Health Check 주기 (1분)
	HealthCheckTimeout:  5 * time.Second,  // Health Check 타임아웃 (5초)
}

var BroadcastConfig = struct {
	Channel      string
	ReadyTimeout time.Duration
}{
	Channel:      "kfp:getting-started:refresh",
	ReadyTimeout: 5 * time.Second,
}

var WebSocketConfig = struct {
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	SubscriberBuffer int
}{
	WriteTimeout:     10 * time.Second,
	PingInterval:     30 * time.Second,
	SubscriberBuffer: 1,
}

var ServerConfig = struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}{
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    30 * time.Second,
	IdleTimeout:     60 * time.Second,
	ShutdownTimeout: 10 * time.Second,
}
