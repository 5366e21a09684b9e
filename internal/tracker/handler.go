package tracker

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// settingsRequest 是PUT房间设置的请求体，字段与Tracker的JSON输出对应
type settingsRequest struct {
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	OwnerUserID           *uint           `json:"ownerUserId"`
	LockSettings          bool            `json:"lockSettings"`
	RequireAuthToClaim    bool            `json:"requireAuthenticationToClaim"`
	GlobalPingPolicy      *PingPreference `json:"globalPingPolicy"`
	RoomLink              string          `json:"roomLink"`
	InactivityYellowHours int             `json:"inactivityYellowHours"`
	InactivityRedHours    int             `json:"inactivityRedHours"`
}

// UpdateSettingsHandler 处理 PUT /api/tracker/:tracker_id 请求
func UpdateSettingsHandler(c *gin.Context) {
	t, err := GetByPublicID(c.Param("tracker_id"))
	if err != nil {
		fmt.Printf("查询房间 %s 失败: %v\n", c.Param("tracker_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取房间"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房间不存在"})
		return
	}

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	upd := SettingsUpdate{
		Title:                 req.Title,
		Description:           req.Description,
		OwnerUserID:           req.OwnerUserID,
		LockSettings:          req.LockSettings,
		RequireAuthToClaim:    req.RequireAuthToClaim,
		GlobalPingPolicy:      req.GlobalPingPolicy,
		RoomLink:              req.RoomLink,
		InactivityYellowHours: req.InactivityYellowHours,
		InactivityRedHours:    req.InactivityRedHours,
	}

	err = UpdateSettings(t, upd, user.CurrentUser(c), user.ActorFromContext(c))
	switch {
	case errors.Is(err, ErrInvalidSettings):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		fmt.Printf("更新房间 %s 设置失败: %v\n", t.PublicID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法更新房间设置"})
	default:
		c.JSON(http.StatusOK, t)
	}
}
