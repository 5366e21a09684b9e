package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&audit.Record{}, &user.User{}, &Tracker{}))
	database.DB = db
}

func createTestTracker(t *testing.T) *Tracker {
	tr := &Tracker{
		PublicID:              "room-1",
		UpstreamURL:           "https://upstream.test/tracker/room-1",
		InactivityYellowHours: 24,
		InactivityRedHours:    48,
	}
	require.NoError(t, database.DB.Create(tr).Error)
	return tr
}

func createTestUser(t *testing.T, name string) *user.User {
	// DiscordUserID 带唯一索引，按名字派生一个稳定且互不相同的值
	var discordID int64
	for _, c := range name {
		discordID = discordID*31 + int64(c)
	}
	u := &user.User{DiscordUserID: discordID, DiscordUsername: name}
	require.NoError(t, database.DB.Create(u).Error)
	return u
}

// settingsFrom 以当前状态为基线构造设置变更
func settingsFrom(tr *Tracker) SettingsUpdate {
	return SettingsUpdate{
		Title:                 tr.Title,
		Description:           tr.Description,
		OwnerUserID:           tr.OwnerUserID,
		LockSettings:          tr.LockSettings,
		RequireAuthToClaim:    tr.RequireAuthToClaim,
		GlobalPingPolicy:      tr.GlobalPingPolicy,
		RoomLink:              tr.RoomLink,
		InactivityYellowHours: tr.InactivityYellowHours,
		InactivityRedHours:    tr.InactivityRedHours,
	}
}

func actorFor(u *user.User) audit.Actor {
	a := audit.Actor{IP: "127.0.0.1", Source: audit.SourceSession}
	if u != nil {
		a.UserID = &u.ID
	}
	return a
}

func TestOwnerClaimAndLock(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)
	alice := createTestUser(t, "alice")

	upd := settingsFrom(tr)
	upd.OwnerUserID = &alice.ID
	upd.LockSettings = true
	upd.Title = "Alice的房间"
	require.NoError(t, UpdateSettings(tr, upd, alice, actorFor(alice)))

	require.NotNil(t, tr.OwnerUserID)
	assert.Equal(t, alice.ID, *tr.OwnerUserID)
	assert.True(t, tr.LockSettings)
}

func TestCannotClaimTrackerForOthers(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	upd := settingsFrom(tr)
	upd.OwnerUserID = &bob.ID
	err := UpdateSettings(tr, upd, alice, actorFor(alice))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLockedSettingsRejectNonOwner(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	claim := settingsFrom(tr)
	claim.OwnerUserID = &alice.ID
	claim.LockSettings = true
	require.NoError(t, UpdateSettings(tr, claim, alice, actorFor(alice)))

	upd := settingsFrom(tr)
	upd.Title = "改掉标题"
	err := UpdateSettings(tr, upd, bob, actorFor(bob))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// 房主本人可以改
	upd.OwnerUserID = tr.OwnerUserID
	require.NoError(t, UpdateSettings(tr, upd, alice, actorFor(alice)))
	assert.Equal(t, "改掉标题", tr.Title)
}

func TestUnlockedTrackerStillProtectsLockAndDescription(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	claim := settingsFrom(tr)
	claim.OwnerUserID = &alice.ID
	claim.Description = "Alice的集换活动"
	require.NoError(t, UpdateSettings(tr, claim, alice, actorFor(alice)))
	assert.False(t, tr.LockSettings)

	// 未锁定不等于开放：匿名调用者不能替房主锁定设置或改描述
	hijack := settingsFrom(tr)
	hijack.LockSettings = true
	hijack.Description = "被劫持的描述"
	err := UpdateSettings(tr, hijack, nil, audit.Actor{IP: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// 登录但不是房主的调用者同样不行
	err = UpdateSettings(tr, hijack, bob, actorFor(bob))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	fresh, err := GetByPublicID(tr.PublicID)
	require.NoError(t, err)
	assert.False(t, fresh.LockSettings)
	assert.Equal(t, "Alice的集换活动", fresh.Description)

	// 未锁定时标题这类普通设置仍然开放编辑
	open := settingsFrom(fresh)
	open.Title = "大家一起改的标题"
	require.NoError(t, UpdateSettings(fresh, open, bob, actorFor(bob)))
}

func TestInvalidThresholdsRejected(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)

	upd := settingsFrom(tr)
	upd.InactivityYellowHours = 72
	upd.InactivityRedHours = 24
	err := UpdateSettings(tr, upd, nil, audit.Actor{IP: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRequireAuthNeedsLockedSettings(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)

	upd := settingsFrom(tr)
	upd.RequireAuthToClaim = true
	err := UpdateSettings(tr, upd, nil, audit.Actor{IP: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRoomLinkValidation(t *testing.T) {
	upstreamURL := "https://upstream.test/tracker/abc"

	assert.True(t, ValidRoomLink(upstreamURL, "https://upstream.test/room/xyz"))
	// 跨域的房间链接拒绝
	assert.False(t, ValidRoomLink(upstreamURL, "https://other.test/room/xyz"))
	// 路径必须是 /room/{id}
	assert.False(t, ValidRoomLink(upstreamURL, "https://upstream.test/tracker/xyz"))
	assert.False(t, ValidRoomLink(upstreamURL, "https://upstream.test/room/"))
	assert.False(t, ValidRoomLink(upstreamURL, "https://upstream.test/room/a/b"))
}

func TestRoomLinkChangeSchedulesPortCheck(t *testing.T) {
	setupTestDB(t)
	tr := createTestTracker(t)

	upd := settingsFrom(tr)
	upd.RoomLink = "https://upstream.test/room/xyz"
	require.NoError(t, UpdateSettings(tr, upd, nil, audit.Actor{IP: "127.0.0.1"}))

	assert.Equal(t, "https://upstream.test/room/xyz", tr.RoomLink)
	assert.Nil(t, tr.NextPortCheckAt)

	base, roomID, ok := tr.Room()
	require.True(t, ok)
	assert.Equal(t, "https://upstream.test", base)
	assert.Equal(t, "xyz", roomID)
}
