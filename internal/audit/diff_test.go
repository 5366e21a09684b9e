package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

type embeddedPart struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

type sampleEntity struct {
	embeddedPart
	Name     string  `json:"name"`
	Owner    *uint   `json:"owner"`
	Internal string  `audit:"-"`
	Note     *string `json:"note"`
}

func TestDiffOnlyChangedFields(t *testing.T) {
	owner := uint(7)
	before := sampleEntity{
		embeddedPart: embeddedPart{Count: 3, Label: "a"},
		Name:         "slot one",
		Owner:        nil,
		Internal:     "x",
	}
	after := before
	after.Count = 5
	after.Owner = &owner
	after.Internal = "y"

	changes, err := Diff(&before, &after)
	require.NoError(t, err)

	assert.Len(t, changes, 2)
	assert.Equal(t, 3, changes["count"].Old)
	assert.Equal(t, 5, changes["count"].New)
	assert.Nil(t, changes["owner"].Old)
	assert.Equal(t, owner, changes["owner"].New)
	// audit:"-" 字段不进diff
	assert.NotContains(t, changes, "Internal")
}

func TestDiffIdenticalValues(t *testing.T) {
	e := sampleEntity{Name: "same"}
	changes, err := Diff(&e, &e)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffTypeMismatch(t *testing.T) {
	_, err := Diff(&sampleEntity{}, &embeddedPart{})
	assert.Error(t, err)
}

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Record{}))
	database.DB = db
}

func TestRecordChangeWritesOneRecord(t *testing.T) {
	setupTestDB(t)

	before := sampleEntity{Name: "old"}
	after := sampleEntity{Name: "new"}
	actor := Actor{IP: "10.0.0.1", Source: SourceSession}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		written, err := RecordChange(tx, EntityGame, 42, &before, &after, actor)
		require.NoError(t, err)
		assert.True(t, written)
		return nil
	})
	require.NoError(t, err)

	var records []Record
	require.NoError(t, database.DB.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, EntityGame, records[0].EntityKind)
	assert.Equal(t, uint(42), records[0].EntityID)
	assert.Equal(t, "10.0.0.1", records[0].ActorIP)

	var changes Changes
	require.NoError(t, json.Unmarshal([]byte(records[0].Changes), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "old", changes["name"].Old)
	assert.Equal(t, "new", changes["name"].New)
}

func TestRecordChangeSkipsNoopMutation(t *testing.T) {
	setupTestDB(t)

	e := sampleEntity{Name: "same"}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		written, err := RecordChange(tx, EntityGame, 1, &e, &e, SystemActor)
		require.NoError(t, err)
		assert.False(t, written)
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, database.DB.Model(&Record{}).Count(&count).Error)
	assert.Zero(t, count)
}
