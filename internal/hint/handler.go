package hint

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

type classificationRequest struct {
	Classification Classification `json:"classification"`
}

// UpdateClassificationHandler 处理 PUT /api/tracker/:tracker_id/hint/:hint_id 请求
func UpdateClassificationHandler(c *gin.Context) {
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

	hintID, err := strconv.ParseUint(c.Param("hint_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的提示ID"})
		return
	}
	h, err := GetByTrackerAndID(t.ID, uint(hintID))
	if err != nil {
		fmt.Printf("查询提示 %d 失败: %v\n", hintID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取提示"})
		return
	}
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "提示不存在"})
		return
	}

	var req classificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	err = UpdateClassification(h, req.Classification, user.ActorFromContext(c))
	switch {
	case errors.Is(err, ErrInvalidClassification):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		fmt.Printf("更新提示 %d 标注失败: %v\n", h.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法更新提示"})
	default:
		c.JSON(http.StatusOK, h)
	}
}
