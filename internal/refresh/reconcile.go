package refresh

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
)

// applySnapshot 把一次上游快照合并进库存状态。
// 整批在一个事务里完成：槽位合并、提示合并、刷新时间戳，要么全部生效
// 要么全部回滚。不同房间的合并互不竞争。
func applySnapshot(t *tracker.Tracker, snap *upstream.RoomSnapshot, fetchStart time.Time) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		games, err := game.ListByTracker(tx, t.ID)
		if err != nil {
			return fmt.Errorf("无法读取房间槽位: %w", err)
		}

		byPosition := make(map[int]*game.Game, len(games))
		for i := range games {
			byPosition[games[i].Position] = &games[i]
		}

		// byName 供提示合并把槽位名换算成ID，覆盖合并后的全部槽位
		byName := make(map[string]*game.Game, len(games))
		matched := make(map[int]bool, len(snap.Slots))

		for _, rec := range snap.Slots {
			matched[rec.Position] = true
			if existing := byPosition[rec.Position]; existing != nil {
				// 只覆盖上游独占的字段组，用户字段原样保留
				f := game.UpstreamFieldsFromRecord(rec, snap.FetchedAt)
				if err := game.ApplyUpstream(tx, existing, f); err != nil {
					return fmt.Errorf("无法更新槽位 %d: %w", rec.Position, err)
				}
				byName[existing.Name] = existing
				continue
			}

			g := game.NewFromUpstream(t.ID, rec, snap.FetchedAt)
			if err := tx.Create(&g).Error; err != nil {
				return fmt.Errorf("无法创建槽位 %d: %w", rec.Position, err)
			}
			games = append(games, g)
			byName[g.Name] = &games[len(games)-1]
		}

		// 上游不会删除槽位，消失按异常处理：记日志，行保持原状
		for i := range games {
			g := &games[i]
			if !matched[g.Position] {
				fmt.Printf("警告: 房间 %s 的槽位 %d (%s) 未出现在上游数据中，保持原状\n",
					t.PublicID, g.Position, g.Name)
				byName[g.Name] = g
			}
		}

		if err := reconcileHints(tx, t, byName, snap.Hints); err != nil {
			return err
		}

		return tracker.MarkFetched(tx, t.ID, fetchStart)
	})
}

// reconcileHints 把上游提示合并进库存提示。
// 上游没有稳定的提示ID，按自然键做多重集匹配：
// 匹配行只更新found，新行以unknown标注插入，剩下没被匹配的库存行删除。
func reconcileHints(tx *gorm.DB, t *tracker.Tracker, byName map[string]*game.Game, recs []upstream.HintRecord) error {
	stored, err := hint.ListByTracker(tx, t.ID)
	if err != nil {
		return fmt.Errorf("无法读取房间提示: %w", err)
	}

	pool := make(map[hint.NaturalKey][]*hint.Hint, len(stored))
	for i := range stored {
		h := &stored[i]
		pool[h.Key()] = append(pool[h.Key()], h)
	}

	for _, rec := range recs {
		finder := byName[rec.Finder]
		if finder == nil {
			fmt.Printf("警告: 房间 %s 的提示引用了未知槽位 %q，跳过\n", t.PublicID, rec.Finder)
			continue
		}

		key := hint.NaturalKey{
			FinderGameID: finder.ID,
			Item:         rec.Item,
			Location:     rec.Location,
			Entrance:     rec.Entrance,
		}
		var receiverID *uint
		var linkName string
		if receiver := byName[rec.Receiver]; receiver != nil {
			receiverID = &receiver.ID
			key.ReceiverGameID = receiver.ID
		} else {
			// 接收方不是房间内的槽位，这是一个物品链接组
			linkName = rec.Receiver
			key.ItemLinkName = rec.Receiver
		}

		if list := pool[key]; len(list) > 0 {
			h := list[0]
			pool[key] = list[1:]
			if h.Found != rec.Found {
				if err := tx.Model(h).Update("found", rec.Found).Error; err != nil {
					return fmt.Errorf("无法更新提示 %d: %w", h.ID, err)
				}
			}
			continue
		}

		h := hint.Hint{
			TrackerID:      t.ID,
			FinderGameID:   finder.ID,
			ReceiverGameID: receiverID,
			ItemLinkName:   linkName,
			Item:           rec.Item,
			Location:       rec.Location,
			Entrance:       rec.Entrance,
			Found:          rec.Found,
			Classification: hint.ClassificationUnknown,
		}
		if err := tx.Create(&h).Error; err != nil {
			return fmt.Errorf("无法创建提示: %w", err)
		}
	}

	// 没被任何上游行匹配到的库存提示是历史残留，删除
	for _, list := range pool {
		for _, h := range list {
			if err := tx.Delete(h).Error; err != nil {
				return fmt.Errorf("无法删除残留提示 %d: %w", h.ID, err)
			}
		}
	}
	return nil
}
