package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrRoomNotFound 表示上游对房间页面返回了404，通常是URL写错或房间已过期。
var ErrRoomNotFound = errors.New("upstream room not found")

// Fetcher 是上游数据源的抽象。
// 生产实现走HTTP；测试里用计数的假实现来验证抓取次数。
type Fetcher interface {
	// FetchRoom 抓取并解析一个上游追踪页面。
	FetchRoom(ctx context.Context, pageURL string) (*RoomSnapshot, error)
	// FetchRoomStatus 查询房间状态API，获取最近使用的端口等信息。
	FetchRoomStatus(ctx context.Context, apiBaseURL, roomID string) (*RoomStatus, error)
}

// HTTPFetcher 是Fetcher的标准HTTP实现
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher 创建一个带超时的HTTP抓取器。
// 超时到期按抓取失败处理，由调用方决定降级策略。
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchRoom 抓取上游追踪页面并解析为快照
func (f *HTTPFetcher) FetchRoom(ctx context.Context, pageURL string) (*RoomSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("无法构造上游请求: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("上游请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRoomNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("上游返回异常状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取上游响应失败: %w", err)
	}

	slots, hints, err := ParseRoomHTML(string(body))
	if err != nil {
		return nil, err
	}

	return &RoomSnapshot{
		Slots:     slots,
		Hints:     hints,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// roomStatusResponse 是房间状态API的原始JSON结构
type roomStatusResponse struct {
	LastActivity string `json:"last_activity"`
	LastPort     int    `json:"last_port"`
	TimeoutSec   int    `json:"timeout"`
}

// 房间状态API返回的时间格式，形如 "Sat, 2 Aug 2025 10:15:30 GMT"
const roomTimeLayout = "Mon, 2 Jan 2006 15:04:05 MST"

// FetchRoomStatus 查询房间状态API
func (f *HTTPFetcher) FetchRoomStatus(ctx context.Context, apiBaseURL, roomID string) (*RoomStatus, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法解析房间API地址: %w", err)
	}
	target, err := base.Parse("room_status/" + roomID)
	if err != nil {
		return nil, fmt.Errorf("无法构造房间状态URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("无法构造房间状态请求: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("房间状态请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRoomNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("房间状态API返回异常状态码 %d", resp.StatusCode)
	}

	var raw roomStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("解析房间状态响应失败: %w", err)
	}

	lastActivity, err := time.Parse(roomTimeLayout, raw.LastActivity)
	if err != nil {
		return nil, fmt.Errorf("解析房间活动时间失败: %w", err)
	}

	return &RoomStatus{
		LastActivity: lastActivity.UTC(),
		LastPort:     raw.LastPort,
		TimeoutSec:   raw.TimeoutSec,
	}, nil
}
