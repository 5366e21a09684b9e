package refresh

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// gameView 在槽位数据外附带读取时计算的展示归属名
type gameView struct {
	game.Game
	EffectiveOwnerName string `json:"effectiveOwnerName"`
}

// trackerResponse 是GET房间接口的完整响应
type trackerResponse struct {
	Tracker *tracker.Tracker `json:"tracker"`
	Games   []gameView       `json:"games"`
	Hints   []hint.Hint      `json:"hints"`
}

// buildTrackerResponse 从库存状态组装响应
func buildTrackerResponse(t *tracker.Tracker) (*trackerResponse, error) {
	games, err := game.ListByTracker(database.DB, t.ID)
	if err != nil {
		return nil, fmt.Errorf("无法读取房间槽位: %w", err)
	}
	hints, err := hint.ListByTracker(database.DB, t.ID)
	if err != nil {
		return nil, fmt.Errorf("无法读取房间提示: %w", err)
	}

	// 一次性取出全部认领者，按槽位求展示名
	owners := make(map[uint]*user.User)
	for i := range games {
		if id := games[i].ClaimedByUserID; id != nil {
			owners[*id] = nil
		}
	}
	for id := range owners {
		u, err := user.GetByID(id)
		if err != nil {
			return nil, err
		}
		owners[id] = u
	}

	views := make([]gameView, 0, len(games))
	for i := range games {
		g := &games[i]
		var owner *user.User
		if g.ClaimedByUserID != nil {
			owner = owners[*g.ClaimedByUserID]
		}
		views = append(views, gameView{
			Game:               *g,
			EffectiveOwnerName: game.EffectiveOwnerName(g, owner),
		})
	}

	return &trackerResponse{Tracker: t, Games: views, Hints: hints}, nil
}

// GetTrackerHandler 处理 GET /api/tracker/:tracker_id 请求。
// 请求会先经过抓取协调器，按需合并一次上游刷新，再返回库存状态。
func GetTrackerHandler(c *gin.Context) {
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

	force := c.Query("force") == "true"
	if err := Coord.EnsureFresh(c.Request.Context(), t, force); err != nil {
		respondRefreshError(c, t, err)
		return
	}

	resp, err := buildTrackerResponse(t)
	if err != nil {
		fmt.Printf("组装房间 %s 响应失败: %v\n", t.PublicID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取房间状态"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type createTrackerRequest struct {
	UpstreamURL string `json:"upstreamUrl" binding:"required"`
}

// CreateTrackerHandler 处理 POST /api/tracker 请求。
// 对上游URL幂等：已存在时返回已有房间。白名单校验发生在任何
// 网络请求和建行之前。
func CreateTrackerHandler(c *gin.Context) {
	var req createTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	if !ValidNewUpstreamURL(req.UpstreamURL) {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrNotWhitelisted.Error()})
		return
	}

	t, created, err := tracker.FindOrCreateByUpstreamURL(req.UpstreamURL)
	if err != nil {
		fmt.Printf("创建房间失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法创建房间"})
		return
	}

	// 新房间没有任何历史状态，首次抓取失败会直接报给调用方
	if err := Coord.EnsureFresh(c.Request.Context(), t, false); err != nil {
		respondRefreshError(c, t, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"id": t.PublicID})
}

// respondRefreshError 把抓取错误翻译成HTTP响应
func respondRefreshError(c *gin.Context, t *tracker.Tracker, err error) {
	switch {
	case errors.Is(err, ErrNotWhitelisted):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, upstream.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "上游房间不存在"})
	default:
		fmt.Printf("刷新房间 %s 失败: %v\n", t.PublicID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "上游抓取失败"})
	}
}
