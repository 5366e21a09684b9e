package game

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// ownerSnapshotRequest 是调用者上一次看到的归属字段
type ownerSnapshotRequest struct {
	ClaimedByUserID *uint   `json:"claimedByUserId"`
	DiscordUsername *string `json:"discordUsername"`
}

// updateRequest 是PUT槽位的请求体。
// 变更归属字段时必须携带priorOwner，否则返回428。
type updateRequest struct {
	ClaimedByUserID *uint                  `json:"claimedByUserId"`
	DiscordUsername *string                `json:"discordUsername"`
	Notes           string                 `json:"notes"`
	PingPreference  tracker.PingPreference `json:"pingPreference"`
	Progression     Progression            `json:"progressionStatus"`
	Availability    Availability           `json:"availabilityStatus"`
	Completion      CompletionStatus       `json:"completionStatus"`
	LastCheckedAt   *time.Time             `json:"lastCheckedAt"`
	PriorOwner      *ownerSnapshotRequest  `json:"priorOwner"`
}

// UpdateGameHandler 处理 PUT /api/tracker/:tracker_id/game/:game_id 请求
func UpdateGameHandler(c *gin.Context) {
	t, err := tracker.GetByPublicID(c.Param("tracker_id"))
	if err != nil {
		fmt.Printf("查询房间 %s 失败: %v\n", c.Param("tracker_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取房间"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房间不存在"})
		return
	}

	gameID, err := strconv.ParseUint(c.Param("game_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的槽位ID"})
		return
	}
	g, err := GetByTrackerAndID(t.ID, uint(gameID))
	if err != nil {
		fmt.Printf("查询槽位 %d 失败: %v\n", gameID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取槽位"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "槽位不存在"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	upd := Update{
		ClaimedByUserID: req.ClaimedByUserID,
		DiscordUsername: req.DiscordUsername,
		Notes:           req.Notes,
		PingPreference:  req.PingPreference,
		Progression:     req.Progression,
		Availability:    req.Availability,
		Completion:      req.Completion,
		LastCheckedAt:   req.LastCheckedAt,
	}
	var prior *OwnerSnapshot
	if req.PriorOwner != nil {
		prior = &OwnerSnapshot{
			ClaimedByUserID: req.PriorOwner.ClaimedByUserID,
			DiscordUsername: req.PriorOwner.DiscordUsername,
		}
	}

	err = UpdateGame(g, t, upd, prior, user.CurrentUser(c), user.ActorFromContext(c))
	switch {
	case errors.Is(err, ErrInvalidUpdate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ErrClaimForbidden), errors.Is(err, ErrAccountClaimRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPreconditionRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error()})
	case errors.Is(err, ErrOwnershipConflict):
		// 冲突响应点名槽位，方便客户端提示后重试
		c.JSON(http.StatusPreconditionFailed, gin.H{
			"error": fmt.Sprintf("槽位 %s 的归属已被他人修改，请刷新后重试", g.Name),
			"slot":  g.Name,
		})
	case err != nil:
		fmt.Printf("更新槽位 %d 失败: %v\n", g.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法更新槽位"})
	default:
		c.JSON(http.StatusOK, g)
	}
}
