package user

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSelf 处理 GET /api/user/self 请求，返回当前用户概要
func GetSelf(c *gin.Context) {
	u := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":              u.ID,
		"discordUsername": u.DiscordUsername,
	})
}

// GetAPIKey 处理 GET /api/user/self/api_key 请求
func GetAPIKey(c *gin.Context) {
	u := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"apiKey": u.APIKey})
}

// ResetAPIKeyHandler 处理 POST /api/user/self/api_key 请求，签发新密钥
func ResetAPIKeyHandler(c *gin.Context) {
	u := CurrentUser(c)
	newKey, err := ResetAPIKey(u)
	if err != nil {
		fmt.Printf("为用户 %d 签发API密钥失败: %v\n", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法签发API密钥"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": newKey})
}

// ClearAPIKeyHandler 处理 DELETE /api/user/self/api_key 请求
func ClearAPIKeyHandler(c *gin.Context) {
	u := CurrentUser(c)
	if err := ClearAPIKey(u); err != nil {
		fmt.Printf("吊销用户 %d 的API密钥失败: %v\n", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法吊销API密钥"})
		return
	}
	c.Status(http.StatusNoContent)
}

// settingsRequest 是用户自助设置的请求体
type settingsRequest struct {
	IsAway bool `json:"isAway"`
}

// GetSettings 处理 GET /api/user/self/settings 请求
func GetSettings(c *gin.Context) {
	u := CurrentUser(c)
	c.JSON(http.StatusOK, settingsRequest{IsAway: u.IsAway})
}

// PutSettings 处理 PUT /api/user/self/settings 请求
func PutSettings(c *gin.Context) {
	u := CurrentUser(c)

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	if err := UpdateSettings(u, req.IsAway, ActorFromContext(c)); err != nil {
		fmt.Printf("更新用户 %d 设置失败: %v\n", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法更新设置"})
		return
	}

	c.JSON(http.StatusOK, settingsRequest{IsAway: u.IsAway})
}
