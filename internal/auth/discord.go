package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Discord OAuth的各个端点
const (
	discordAuthorizeURL = "https://discord.com/oauth2/authorize"
	discordTokenURL     = "https://discord.com/api/oauth2/token"
	discordUserURL      = "https://discord.com/api/users/@me"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// discordIdentity 是Discord用户接口返回的身份信息
type discordIdentity struct {
	ID       int64
	Username string
}

// buildAuthorizeURL 组装Discord授权页面的跳转地址
func buildAuthorizeURL(clientID, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "identify")
	q.Set("state", state)
	return discordAuthorizeURL + "?" + q.Encode()
}

// exchangeCode 用授权码换取访问令牌
func exchangeCode(ctx context.Context, clientID, clientSecret, redirectURI, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, discordTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("无法构造令牌请求: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("令牌请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Discord令牌接口返回 %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("解析令牌响应失败: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("Discord令牌响应中没有access_token")
	}
	return payload.AccessToken, nil
}

// fetchIdentity 用访问令牌读取Discord用户身份
func fetchIdentity(ctx context.Context, accessToken string) (*discordIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordUserURL, nil)
	if err != nil {
		return nil, fmt.Errorf("无法构造用户请求: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("用户请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Discord用户接口返回 %d", resp.StatusCode)
	}

	var payload struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("解析用户响应失败: %w", err)
	}

	id, err := strconv.ParseInt(payload.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("无效的Discord用户ID %q", payload.ID)
	}
	return &discordIdentity{ID: id, Username: payload.Username}, nil
}
