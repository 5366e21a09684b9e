package dashboard

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// ListTrackersHandler 处理 GET /api/dashboard/tracker 请求
func ListTrackersHandler(c *gin.Context) {
	u := user.CurrentUser(c)
	trackers, err := ListTrackers(u.ID)
	if err != nil {
		fmt.Printf("查询用户 %d 的仪表盘失败: %v\n", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取仪表盘"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackers": trackers})
}

// lookupTracker 解析路径里的房间ID
func lookupTracker(c *gin.Context) *tracker.Tracker {
	t, err := tracker.GetByPublicID(c.Param("tracker_id"))
	if err != nil {
		fmt.Printf("查询房间 %s 失败: %v\n", c.Param("tracker_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取房间"})
		return nil
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房间不存在"})
		return nil
	}
	return t
}

// GetOverrideHandler 处理 GET /api/dashboard/tracker/:tracker_id/override 请求
func GetOverrideHandler(c *gin.Context) {
	t := lookupTracker(c)
	if t == nil {
		return
	}
	u := user.CurrentUser(c)

	o, err := GetOverride(u.ID, t.ID)
	if err != nil {
		fmt.Printf("查询可见性覆盖失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取可见性覆盖"})
		return
	}
	if o == nil {
		c.JSON(http.StatusOK, gin.H{"visibility": nil})
		return
	}
	c.JSON(http.StatusOK, o)
}

type overrideRequest struct {
	Visibility Visibility `json:"visibility"`
}

// PutOverrideHandler 处理 PUT /api/dashboard/tracker/:tracker_id/override 请求
func PutOverrideHandler(c *gin.Context) {
	t := lookupTracker(c)
	if t == nil {
		return
	}
	u := user.CurrentUser(c)

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil || !ValidVisibility(req.Visibility) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "可见性只能是show或hide"})
		return
	}

	if err := SetOverride(u.ID, t.ID, req.Visibility); err != nil {
		fmt.Printf("保存可见性覆盖失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法保存可见性覆盖"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visibility": req.Visibility})
}

// DeleteOverrideHandler 处理 DELETE /api/dashboard/tracker/:tracker_id/override 请求
func DeleteOverrideHandler(c *gin.Context) {
	t := lookupTracker(c)
	if t == nil {
		return
	}
	u := user.CurrentUser(c)

	if err := ClearOverride(u.ID, t.ID); err != nil {
		fmt.Printf("删除可见性覆盖失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法删除可见性覆盖"})
		return
	}
	c.Status(http.StatusNoContent)
}
