package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/token"
)

// state随机数在Redis中的有效期，超过后登录流程需要重新开始
const stateTTL = 10 * time.Minute

func stateKey(nonce string) string {
	return "oauth:state:" + nonce
}

func redirectURI() string {
	return config.Cfg.Server.PublicURL + "/api/auth/discord/complete"
}

// BeginDiscordLogin 处理 GET /api/auth/discord 请求，跳转到Discord授权页。
// state随机数落在Redis里，完成回调时一次性消费。
func BeginDiscordLogin(c *gin.Context) {
	nonce, err := token.GenerateStateNonce()
	if err != nil {
		fmt.Printf("生成OAuth state失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法开始登录流程"})
		return
	}

	if err := database.RDB.Set(c.Request.Context(), stateKey(nonce), "1", stateTTL).Err(); err != nil {
		fmt.Printf("保存OAuth state失败: %v\n", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "登录服务暂时不可用"})
		return
	}

	c.Redirect(http.StatusFound,
		buildAuthorizeURL(config.Cfg.Discord.ClientID, redirectURI(), nonce))
}

// CompleteDiscordLogin 处理 GET /api/auth/discord/complete 回调。
// 校验state后换码取身份，登记用户并签发会话令牌。
func CompleteDiscordLogin(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少code或state参数"})
		return
	}

	// GETDEL保证每个state只能用一次
	if err := database.RDB.GetDel(c.Request.Context(), stateKey(state)).Err(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state无效或已过期，请重新登录"})
		return
	}

	accessToken, err := exchangeCode(c.Request.Context(),
		config.Cfg.Discord.ClientID, config.Cfg.Discord.ClientSecret, redirectURI(), code)
	if err != nil {
		fmt.Printf("Discord换码失败: %v\n", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Discord登录失败"})
		return
	}

	identity, err := fetchIdentity(c.Request.Context(), accessToken)
	if err != nil {
		fmt.Printf("读取Discord身份失败: %v\n", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Discord登录失败"})
		return
	}

	u, err := user.UpsertFromDiscord(identity.ID, identity.Username)
	if err != nil {
		fmt.Printf("登记Discord用户失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法完成登录"})
		return
	}

	session, err := token.IssueSessionToken(u.ID)
	if err != nil {
		fmt.Printf("签发会话令牌失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法完成登录"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":           session,
		"userId":          u.ID,
		"discordUsername": u.DiscordUsername,
	})
}
