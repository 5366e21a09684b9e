package user

import (
	"errors"
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetByID 按主键读取用户
func GetByID(id uint) (*User, error) {
	var u User
	err := database.DB.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取用户 %d: %w", id, err)
	}
	return &u, nil
}

// GetByAPIKey 按API密钥读取用户，密钥不存在时返回nil
func GetByAPIKey(key string) (*User, error) {
	var u User
	err := database.DB.Where("api_key = ?", key).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法按API密钥读取用户: %w", err)
	}
	return &u, nil
}

// UpsertFromDiscord 在Discord登录完成后创建或更新用户。
// 用户名以Discord返回的为准，每次登录刷新。
func UpsertFromDiscord(discordUserID int64, discordUsername string) (*User, error) {
	var u User
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("discord_user_id = ?", discordUserID).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = User{
				DiscordUserID:   discordUserID,
				DiscordUsername: discordUsername,
			}
			return tx.Create(&u).Error
		}
		if err != nil {
			return err
		}
		if u.DiscordUsername != discordUsername {
			u.DiscordUsername = discordUsername
			return tx.Model(&u).Update("discord_username", discordUsername).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("无法登记Discord用户: %w", err)
	}
	return &u, nil
}

// ResetAPIKey 为用户签发一个新的API密钥，旧密钥立即失效
func ResetAPIKey(u *User) (string, error) {
	newKey := uuid.NewString()
	if err := database.DB.Model(u).Update("api_key", newKey).Error; err != nil {
		return "", fmt.Errorf("无法更新API密钥: %w", err)
	}
	u.APIKey = &newKey
	return newKey, nil
}

// ClearAPIKey 吊销用户的API密钥
func ClearAPIKey(u *User) error {
	if err := database.DB.Model(u).Update("api_key", nil).Error; err != nil {
		return fmt.Errorf("无法吊销API密钥: %w", err)
	}
	u.APIKey = nil
	return nil
}

// UpdateSettings 更新用户的自助设置，变更写入审计
func UpdateSettings(u *User, isAway bool, actor audit.Actor) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		before := *u
		u.IsAway = isAway

		if err := tx.Model(u).Update("is_away", isAway).Error; err != nil {
			return fmt.Errorf("无法更新用户设置: %w", err)
		}

		if _, err := audit.RecordChange(tx, audit.EntityUser, u.ID, &before, u, actor); err != nil {
			return err
		}
		return nil
	})
}
